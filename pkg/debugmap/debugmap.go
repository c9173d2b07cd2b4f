// Package debugmap correlates compiled cells with the source lines that
// produced them. Entries are keyed by the cell's representation hash and are
// only ever added, never replaced.
package debugmap

import (
	"sort"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// Entry is the source location of the first instruction of a cell.
type Entry struct {
	File string `json:"file" cbor:"1,keyasint"`
	Line int    `json:"line" cbor:"2,keyasint"`
	Name string `json:"name,omitempty" cbor:"3,keyasint,omitempty"`
}

// Map is a DebugMap: cell hash to source location.
type Map struct {
	entries map[cell.Hash]Entry
}

// New returns an empty map.
func New() *Map {
	return &Map{entries: make(map[cell.Hash]Entry)}
}

// Insert records e for h unless h already has an entry. It reports whether
// the entry was added.
func (m *Map) Insert(h cell.Hash, e Entry) bool {
	if _, ok := m.entries[h]; ok {
		return false
	}
	m.entries[h] = e
	return true
}

// Lookup returns the entry for h.
func (m *Map) Lookup(h cell.Hash) (Entry, bool) {
	e, ok := m.entries[h]
	return e, ok
}

// Merge inserts every entry of other under the same never-overwrite rule.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	for _, h := range other.Hashes() {
		m.Insert(h, other.entries[h])
	}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Hashes returns all keys in ascending byte order.
func (m *Map) Hashes() []cell.Hash {
	out := make([]cell.Hash, 0, len(m.entries))
	for h := range m.entries {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
