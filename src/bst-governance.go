package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/stake-plus/bst-governance/src/app"
	"github.com/stake-plus/bst-governance/src/config"
	"github.com/stake-plus/bst-governance/src/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv("BST_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.DevMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logrus.Fatalf("build: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logrus.Errorf("run: %v", err)
	}
}
