// Package manifest handles tvmlink.toml contract build declarations.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "tvmlink.toml"

// Manifest represents a tvmlink.toml file.
type Manifest struct {
	Contract   Contract          `toml:"contract"`
	Public     []Procedure       `toml:"public"`
	Private    []Procedure       `toml:"private"`
	Internal   []Procedure       `toml:"internal"`
	Persistent []PersistentValue `toml:"persistent"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-"`
}

// Contract holds contract-wide settings. Paths are relative to the
// manifest directory.
type Contract struct {
	Name           string `toml:"name"`
	Workchain      int8   `toml:"workchain"`
	Language       string `toml:"language"`
	Version        string `toml:"version"`
	SaveMyCode     bool   `toml:"save_my_code"`
	PersistentBase int64  `toml:"persistent_base"`
	Keyfile        string `toml:"keyfile"`
	ABI            string `toml:"abi"`
	CtorParams     string `toml:"ctor_params"`
	Data           string `toml:"data"`
	Output         string `toml:"output"`
	DebugMap       string `toml:"debug_map"`

	// Entry or EntryFile hold the hand-written main selector of old-style
	// contracts.
	Entry     string `toml:"entry"`
	EntryFile string `toml:"entry_file"`
}

// Procedure declares one method. Exactly one of Code and File is set.
type Procedure struct {
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
	Code string `toml:"code"`
	File string `toml:"file"`
}

// PersistentValue is an initial entry of the persistent data dictionary.
type PersistentValue struct {
	Key int64  `toml:"key"`
	Hex string `toml:"hex"`
}

// Load parses the tvmlink.toml file in dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if m.Contract.Name == "" {
		m.Contract.Name = filepath.Base(m.Dir)
	}
	return &m, nil
}

// Path resolves p against the manifest directory. Empty stays empty.
func (m *Manifest) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
