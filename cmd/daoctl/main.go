package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/config"
	"github.com/stake-plus/bst-governance/src/logging"
	"github.com/stake-plus/bst-governance/src/reads"
)

const programName = "daoctl"

var globalFlags = struct {
	configFile string
	debug      bool
	timeout    time.Duration
}{}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Operate and inspect the BST governance gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", os.Getenv("BST_CONFIG"), "path to config file to load")
	root.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	root.PersistentFlags().DurationVar(&globalFlags.timeout, "timeout", 30*time.Second, "deadline for one-shot chain queries")

	root.AddCommand(
		serveCommand(),
		gateCommand(),
		membershipCommand(),
		proposalCommand(),
		unitsCommand(),
	)
	return root
}

// loadConfig reads configuration and sets up logging the same way for
// every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if globalFlags.debug {
		level = logrus.DebugLevel.String()
	}
	logging.Setup(level, cfg.DevMode)
	return cfg, nil
}

// dialReads connects to the chain for one-shot inspection commands.
func dialReads(ctx context.Context, cfg *config.Config) (*reads.Service, func(), error) {
	addrs, err := cfg.Addresses()
	if err != nil {
		return nil, nil, err
	}
	client, err := chain.Dial(ctx, cfg.RPCURL, addrs)
	if err != nil {
		return nil, nil, err
	}
	svc := reads.New(client, reads.Options{
		Timeout:  cfg.ReadTimeout,
		Attempts: cfg.ReadAttempts,
	}, nil)
	return svc, client.Close, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
