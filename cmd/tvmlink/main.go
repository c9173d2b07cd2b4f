package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0-dev"

func main() {
	root := &cobra.Command{
		Use:           "tvmlink",
		Short:         "Link assembled TVM procedures into a deployable contract image",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log build steps to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newAddressCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tvmlink %s\n", version)
		},
	}
}

// commandLogger returns a development logger when --verbose is set and a
// no-op logger otherwise.
func commandLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
