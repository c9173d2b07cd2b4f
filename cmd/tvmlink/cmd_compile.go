package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/tvmlink/pkg/external"
	"github.com/odvcencio/tvmlink/pkg/keys"
	"github.com/odvcencio/tvmlink/pkg/manifest"
	"github.com/odvcencio/tvmlink/pkg/program"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var (
		manifestPath string
		workchain    int8
		language     string
		keyfile      string
		abiPath      string
		ctorParams   string
		dataFile     string
		output       string
		debugMap     string
		encoderBin   string
		simBin       string
		trace        bool
	)

	cmd := &cobra.Command{
		Use:   "compile [dir]",
		Short: "Link the contract declared by tvmlink.toml into a .tvc file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if manifestPath == "" {
				manifestPath = filepath.Join(dir, manifest.FileName)
			}
			m, err := manifest.LoadFile(manifestPath)
			if err != nil {
				return err
			}

			c := &m.Contract
			flags := cmd.Flags()
			if flags.Changed("workchain") {
				c.Workchain = workchain
			}
			if flags.Changed("language") {
				c.Language = language
			}
			overrides := []struct {
				flag string
				dst  *string
				val  string
			}{
				{"keyfile", &c.Keyfile, keyfile},
				{"abi", &c.ABI, abiPath},
				{"ctor-params", &c.CtorParams, ctorParams},
				{"data", &c.Data, dataFile},
				{"output", &c.Output, output},
				{"debug-map", &c.DebugMap, debugMap},
			}
			for _, o := range overrides {
				if flags.Changed(o.flag) {
					// flag paths are relative to the working directory
					*o.dst = absIfPath(o.flag, o.val)
				}
			}

			src, err := m.Source()
			if err != nil {
				return err
			}

			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := []program.Option{
				program.WithLanguage(program.ParseLanguage(c.Language)),
				program.WithLogger(logger),
			}
			if c.Keyfile != "" {
				key, err := keys.Load(m.Path(c.Keyfile))
				if err != nil {
					return err
				}
				opts = append(opts, program.WithKeypair(key))
			}
			if encoderBin != "" {
				opts = append(opts, program.WithABIEncoder(&external.Encoder{Bin: encoderBin}))
			}
			if simBin != "" {
				opts = append(opts, program.WithSimulator(&external.Simulator{Bin: simBin, Stderr: cmd.ErrOrStderr()}))
			}
			p := program.New(src, opts...)

			out := cmd.OutOrStdout()
			if _, err := p.CompileToArtifact(cmd.Context(), program.ArtifactOptions{
				Workchain:  c.Workchain,
				ABIPath:    m.Path(c.ABI),
				CtorParams: c.CtorParams,
				DataFile:   m.Path(c.Data),
				Trace:      trace,
				Dir:        m.Dir,
				Output:     m.Path(c.Output),
				Out:        out,
			}); err != nil {
				return err
			}

			if c.DebugMap != "" {
				path := m.Path(c.DebugMap)
				if err := p.DebugMap().WriteFile(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Debug map saved to %s (%d entries)\n", path, p.DebugMap().Len())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest path (default <dir>/tvmlink.toml)")
	cmd.Flags().Int8VarP(&workchain, "workchain", "w", 0, "workchain id of the contract address")
	cmd.Flags().StringVar(&language, "language", "", "source language marker (C seeds persistent data)")
	cmd.Flags().StringVar(&keyfile, "keyfile", "", "ed25519 key file whose public key goes into the data")
	cmd.Flags().StringVar(&abiPath, "abi", "", "ABI file used to encode the constructor call")
	cmd.Flags().StringVar(&ctorParams, "ctor-params", "", "JSON constructor parameters; runs the constructor")
	cmd.Flags().StringVar(&dataFile, "data", "", "bag of cells whose root replaces the initial data")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <address>.tvc)")
	cmd.Flags().StringVar(&debugMap, "debug-map", "", "write the debug map here (.json, .cbor, optional .zst)")
	cmd.Flags().StringVar(&encoderBin, "abi-encoder", "", "ABI encoder executable")
	cmd.Flags().StringVar(&simBin, "simulator", "", "TVM emulator executable")
	cmd.Flags().BoolVar(&trace, "trace", false, "ask the simulator for an execution trace")
	return cmd
}

// absIfPath makes path flags absolute so they are not resolved against the
// manifest directory. Non-path flags are returned unchanged.
func absIfPath(flag, val string) string {
	if flag == "ctor-params" || val == "" {
		return val
	}
	abs, err := filepath.Abs(val)
	if err != nil {
		return val
	}
	return abs
}
