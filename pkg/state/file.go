package state

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/odvcencio/tvmlink/pkg/address"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/fileutil"
)

// FileExt is the extension of saved state init files.
const FileExt = ".tvc"

// Save writes si as a bag of cells. With an empty name the file is named
// after the address and placed in dir, and the address renderings for both
// networks are printed to w. It returns the path written.
func Save(w io.Writer, si *StateInit, dir, name string, wc int8) (string, error) {
	root, err := si.ToCell()
	if err != nil {
		return "", err
	}
	data, err := cell.SerializeBOC(root, cell.BOCOptions{})
	if err != nil {
		return "", fmt.Errorf("state save: %w", err)
	}

	hash := root.Hash()
	path := name
	if name == "" {
		path = filepath.Join(dir, hash.String()+FileExt)
	} else if dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(dir, name)
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("state save: %w", err)
	}

	if name == "" {
		fmt.Fprintf(w, "Saved contract to file %s\n", path)
		for _, net := range []struct {
			label   string
			testnet bool
		}{{"testnet", true}, {"mainnet", false}} {
			fmt.Fprintf(w, "%s:\n", net.label)
			fmt.Fprintf(w, "Non-bounceable address (for init): %s\n", address.Render(wc, hash, false, net.testnet))
			fmt.Fprintf(w, "Bounceable address (for later access): %s\n", address.Render(wc, hash, true, net.testnet))
		}
	}
	return path, nil
}

// Load reads a state init file. A root with exactly two references predates
// the library slot: an empty third reference is appended before decoding,
// and that reference alone may remain unconsumed.
func Load(path string) (*StateInit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("state load: %w", err)
	}
	root, err := cell.ReadBOCRoot(data)
	if err != nil {
		return nil, fmt.Errorf("state load %s: %w", path, err)
	}
	return FromRootCell(root)
}

// FromRootCell decodes a state init root, applying the two-reference patch
// described on Load.
func FromRootCell(root *cell.Cell) (*StateInit, error) {
	if root.RefsCount() != 2 {
		return FromCell(root)
	}
	patched, err := cell.AppendRefs(root, cell.Empty())
	if err != nil {
		return nil, fmt.Errorf("state load: %w", err)
	}
	si, sl, err := decode(patched)
	if err != nil {
		return nil, err
	}
	if sl.BitsLeft() != 0 || sl.RefsLeft() > 1 {
		return nil, fmt.Errorf("%w: %d bits and %d refs left over", ErrMalformedState, sl.BitsLeft(), sl.RefsLeft())
	}
	return si, nil
}
