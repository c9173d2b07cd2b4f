package program

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/state"
)

// CompileToState links code and data into a state init with no split
// depth, no special flags and an empty library.
func (p *Program) CompileToState() (*state.StateInit, error) {
	code, err := p.CompileCode(false)
	if err != nil {
		return nil, err
	}
	data, err := p.Data()
	if err != nil {
		return nil, err
	}
	return &state.StateInit{Code: code, Data: data}, nil
}

// ArtifactOptions controls CompileToArtifact.
type ArtifactOptions struct {
	Workchain int8
	// ABIPath and CtorParams request an off-chain constructor run.
	ABIPath    string
	CtorParams string
	// DataFile replaces the data with the root of a bag of cells.
	DataFile string
	Trace    bool
	// Dir and Output name the written file; see state.Save.
	Dir    string
	Output string
	Out    io.Writer
}

// CompileToArtifact links the contract, optionally runs the constructor,
// applies a data override and saves the state init. It returns the path
// written.
func (p *Program) CompileToArtifact(ctx context.Context, opts ArtifactOptions) (string, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	si, err := p.CompileToState()
	if err != nil {
		return "", err
	}
	if opts.CtorParams != "" {
		if opts.ABIPath == "" {
			return "", ErrABIRequired
		}
		if si, err = p.ApplyConstructor(ctx, si, opts.ABIPath, opts.CtorParams, opts.Trace); err != nil {
			return "", err
		}
	}
	if opts.DataFile != "" {
		data, err := loadDataOverride(opts.DataFile)
		if err != nil {
			return "", err
		}
		si.Data = data
	}

	path, err := state.Save(out, si, opts.Dir, opts.Output, opts.Workchain)
	if err != nil {
		return "", err
	}
	if opts.Output != "" {
		hash, err := si.Hash()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(out, "Contract successfully compiled. Saved to file %s.\n", opts.Output)
		fmt.Fprintf(out, "Contract address: %s\n", hash)
	}
	p.log.Infof("saved %s", path)
	return path, nil
}

func loadDataOverride(path string) (*cell.Cell, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data override: %w", err)
	}
	root, err := cell.ReadBOCRoot(raw)
	if err != nil {
		return nil, fmt.Errorf("data override %s: %w", path, err)
	}
	return root, nil
}
