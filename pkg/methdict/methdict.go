// Package methdict compiles procedure groups into a method dictionary: a
// 32-bit keyed dictionary whose values are the procedures' code.
package methdict

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/asm"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/debugmap"
	"github.com/odvcencio/tvmlink/pkg/dict"
)

// KeyBits is the width of method ids.
const KeyBits = 32

// Reserved method ids with fixed dispatch slots.
const (
	IDInternal uint32 = 0
	IDExternal uint32 = 0xFFFFFFFF // -1
	IDTickTock uint32 = 0xFFFFFFFE // -2
)

// ConstructorName is the public procedure run once off-chain and then
// removed from the shipped code.
const ConstructorName = "constructor"

// Procedure is one named, separately assembled unit of code.
type Procedure struct {
	ID    uint32
	Name  string
	Lines []asm.Line
}

// Assembler turns instruction lines into a code cell.
type Assembler interface {
	Assemble(lines []asm.Line) (*asm.Result, error)
}

type method struct {
	name  string
	code  *cell.Cell
	entry debugmap.Entry
	// entry is only known when the code has at least one instruction
	hasEntry bool
}

// Builder accumulates procedures into one method dictionary.
type Builder struct {
	asm     Assembler
	dict    *dict.Dictionary
	methods map[uint32]method
	debug   *debugmap.Map
}

// NewBuilder returns an empty builder using a.
func NewBuilder(a Assembler) *Builder {
	return &Builder{
		asm:     a,
		dict:    dict.New(KeyBits),
		methods: make(map[uint32]method),
		debug:   debugmap.New(),
	}
}

// Insert assembles procs and adds them keyed by id. A second procedure for
// an id already present, from this call or an earlier one, is a
// *CollisionError.
func (b *Builder) Insert(procs []Procedure) error {
	for _, p := range procs {
		if prev, ok := b.methods[p.ID]; ok {
			return &CollisionError{ID: p.ID, Existing: prev.name, Colliding: p.Name}
		}
		res, err := b.asm.Assemble(p.Lines)
		if err != nil {
			return &AssemblyError{Procedure: p.Name, Err: err}
		}

		m := method{name: p.Name, code: res.Code}
		root := res.Code.Hash()
		for _, h := range res.Debug.Hashes() {
			e, _ := res.Debug.Lookup(h)
			if h == root {
				e.Name = p.Name
				m.entry, m.hasEntry = e, true
				continue
			}
			// cells below the root keep their hash once the code is
			// inlined into a dictionary leaf
			b.debug.Insert(h, e)
		}
		b.methods[p.ID] = m
		b.dict.Set(uint64(p.ID), res.Code)
	}
	return nil
}

// Len returns the number of methods.
func (b *Builder) Len() int { return len(b.methods) }

// Name returns the procedure name stored under id.
func (b *Builder) Name(id uint32) (string, bool) {
	m, ok := b.methods[id]
	return m.name, ok
}

// Remove takes the method with id out of the dictionary and returns its
// code. The code cell itself is recorded in the debug map since it will be
// referenced directly.
func (b *Builder) Remove(id uint32) (*cell.Cell, bool) {
	m, ok := b.methods[id]
	if !ok {
		return nil, false
	}
	delete(b.methods, id)
	b.dict.Remove(uint64(id))
	if m.hasEntry {
		b.debug.Insert(m.code.Hash(), m.entry)
	}
	return m.code, true
}

// Build encodes the dictionary and returns its root (nil when empty) and the
// debug entries gathered so far, including one for each method's final
// leaf cell.
func (b *Builder) Build() (*cell.Cell, *debugmap.Map, error) {
	root, leaves, err := b.dict.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("method dictionary: %w", err)
	}
	for _, key := range b.dict.Keys() {
		if m := b.methods[uint32(key)]; m.hasEntry {
			b.debug.Insert(leaves[key].Hash(), m.entry)
		}
	}
	return root, b.debug, nil
}

// ExcludeConstructor returns procs without the procedure named
// ConstructorName.
func ExcludeConstructor(procs []Procedure) []Procedure {
	out := make([]Procedure, 0, len(procs))
	for _, p := range procs {
		if p.Name != ConstructorName {
			out = append(out, p)
		}
	}
	return out
}
