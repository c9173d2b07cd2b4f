package manifest

import (
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/odvcencio/tvmlink/pkg/asm"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/dict"
	"github.com/odvcencio/tvmlink/pkg/methdict"
)

// Source is a manifest with all procedure files read and converted, ready
// to be linked.
type Source struct {
	publics    []methdict.Procedure
	privates   []methdict.Procedure
	internals  []methdict.Procedure
	entry      []asm.Line
	base       int64
	persistent *cell.Cell
	version    string
	saveMyCode bool
}

func (s *Source) Publics() []methdict.Procedure   { return s.publics }
func (s *Source) Privates() []methdict.Procedure  { return s.privates }
func (s *Source) Internals() []methdict.Procedure { return s.internals }
func (s *Source) Entry() []asm.Line               { return s.entry }
func (s *Source) Version() string                 { return s.version }
func (s *Source) SaveMyCode() bool                { return s.saveMyCode }

func (s *Source) PersistentData() (int64, *cell.Cell) {
	return s.base, s.persistent
}

// Source reads every procedure referenced by the manifest.
func (m *Manifest) Source() (*Source, error) {
	s := &Source{
		base:       m.Contract.PersistentBase,
		version:    m.Contract.Version,
		saveMyCode: m.Contract.SaveMyCode,
	}
	var err error
	if s.publics, err = m.procedures("public", m.Public); err != nil {
		return nil, err
	}
	if s.privates, err = m.procedures("private", m.Private); err != nil {
		return nil, err
	}
	if s.internals, err = m.procedures("internal", m.Internal); err != nil {
		return nil, err
	}

	switch {
	case m.Contract.Entry != "" && m.Contract.EntryFile != "":
		return nil, fmt.Errorf("contract: entry and entry_file are mutually exclusive")
	case m.Contract.Entry != "":
		s.entry = asm.SplitLines(FileName+"#entry", 1, m.Contract.Entry)
	case m.Contract.EntryFile != "":
		text, err := os.ReadFile(m.Path(m.Contract.EntryFile))
		if err != nil {
			return nil, fmt.Errorf("contract entry: %w", err)
		}
		s.entry = asm.SplitLines(m.Contract.EntryFile, 1, string(text))
	}

	if s.persistent, err = m.persistentRoot(); err != nil {
		return nil, err
	}
	return s, nil
}

// MethodID converts a declared id to a method id. Negative ids are taken as
// their 32-bit two's complement, so -1 is 0xFFFFFFFF.
func MethodID(id int64) (uint32, error) {
	if id < math.MinInt32 || id > math.MaxUint32 {
		return 0, fmt.Errorf("method id %d does not fit in 32 bits", id)
	}
	return uint32(id), nil
}

func (m *Manifest) procedures(group string, decl []Procedure) ([]methdict.Procedure, error) {
	out := make([]methdict.Procedure, 0, len(decl))
	for i, d := range decl {
		if d.Name == "" {
			return nil, fmt.Errorf("%s procedure #%d has no name", group, i+1)
		}
		id, err := MethodID(d.ID)
		if err != nil {
			return nil, fmt.Errorf("%s procedure %s: %w", group, d.Name, err)
		}

		var lines []asm.Line
		switch {
		case d.Code != "" && d.File != "":
			return nil, fmt.Errorf("%s procedure %s: code and file are mutually exclusive", group, d.Name)
		case d.File != "":
			text, err := os.ReadFile(m.Path(d.File))
			if err != nil {
				return nil, fmt.Errorf("%s procedure %s: %w", group, d.Name, err)
			}
			lines = asm.SplitLines(d.File, 1, string(text))
		default:
			lines = asm.SplitLines(FileName+"#"+d.Name, 1, d.Code)
		}
		out = append(out, methdict.Procedure{ID: id, Name: d.Name, Lines: lines})
	}
	return out, nil
}

func (m *Manifest) persistentRoot() (*cell.Cell, error) {
	if len(m.Persistent) == 0 {
		return nil, nil
	}
	d := dict.New(64)
	for _, pv := range m.Persistent {
		raw, err := hex.DecodeString(strings.TrimPrefix(pv.Hex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("persistent key %d: %w", pv.Key, err)
		}
		v, err := cell.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("persistent key %d: %w", pv.Key, err)
		}
		if _, dup := d.SetInt(pv.Key, v); dup {
			return nil, fmt.Errorf("persistent key %d declared twice", pv.Key)
		}
	}
	return d.Root()
}
