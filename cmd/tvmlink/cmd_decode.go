package main

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/program"
	"github.com/odvcencio/tvmlink/pkg/state"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file.tvc>",
		Short: "Print the state init stored in a .tvc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			si, err := state.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, state.Print(si))

			hash, err := si.Hash()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "address: %s\n", hash)

			if si.Code == nil {
				return nil
			}
			v, err := program.CodeVersion(si.Code)
			if err != nil {
				fmt.Fprintf(out, "version: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "version: %s\n", v)
			return nil
		},
	}
}
