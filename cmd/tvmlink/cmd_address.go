package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/odvcencio/tvmlink/pkg/address"
	"github.com/odvcencio/tvmlink/pkg/state"
	"github.com/spf13/cobra"
)

func newAddressCmd() *cobra.Command {
	var workchain int8

	cmd := &cobra.Command{
		Use:   "address <file.tvc | user-friendly address>",
		Short: "Show the addresses of a state init file or decode an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, statErr := os.Stat(args[0]); errors.Is(statErr, os.ErrNotExist) {
				a, err := address.Parse(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "raw: %s\n", a.Raw())
				fmt.Fprintf(out, "bounceable: %t\n", a.Bounceable)
				fmt.Fprintf(out, "testnet: %t\n", a.Testnet)
				return nil
			}

			si, err := state.Load(args[0])
			if err != nil {
				return err
			}
			hash, err := si.Hash()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "raw: %d:%s\n", workchain, hash)
			for _, net := range []struct {
				label   string
				testnet bool
			}{{"testnet", true}, {"mainnet", false}} {
				fmt.Fprintf(out, "%s non-bounceable: %s\n", net.label, address.Render(workchain, hash, false, net.testnet))
				fmt.Fprintf(out, "%s bounceable: %s\n", net.label, address.Render(workchain, hash, true, net.testnet))
			}
			return nil
		},
	}
	cmd.Flags().Int8VarP(&workchain, "workchain", "w", 0, "workchain id")
	return cmd
}
