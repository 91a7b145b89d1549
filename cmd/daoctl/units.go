package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/stake-plus/bst-governance/src/gov"
)

func unitsCommand() *cobra.Command {
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Convert between raw integer amounts and decimal strings",
	}
	cmd.PersistentFlags().Uint8Var(&decimals, "decimals", gov.EtherDecimals, "token decimals")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "format <raw>",
			Short: "Render a raw integer amount as a decimal string",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, ok := new(big.Int).SetString(args[0], 10)
				if !ok {
					return fmt.Errorf("invalid integer %q", args[0])
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gov.FormatUnits(raw, decimals))
				return err
			},
		},
		&cobra.Command{
			Use:   "parse <amount>",
			Short: "Convert a decimal string to its raw integer amount",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := gov.ParseUnits(args[0], decimals)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), raw.String())
				return err
			},
		},
	)
	return cmd
}
