package program

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/asm"
	"github.com/odvcencio/tvmlink/pkg/cell"
)

// Pseudo file names of synthesized code in the debug map.
const (
	internalSelectorFile = "<internal-selector>"
	entrySelectorFile    = "<entry-selector>"
	saveMyCodeFile       = "<save-my-code>"
)

// maxVersionLen is the longest version string that fits in one cell.
const maxVersionLen = cell.MaxBits / 8

func lines(file string, texts ...string) []asm.Line {
	out := make([]asm.Line, len(texts))
	for i, t := range texts {
		out[i] = asm.NewLine(t, file, i+1)
	}
	return out
}

var internalSelectorText = lines(internalSelectorFile,
	"DICTPUSHCONST 32",
	"DICTUGETJMP",
)

// The flag on top of the stack tells the transaction kind: 0 internal,
// -1 external, -2 ticktock.
var entrySelectorText = lines(entrySelectorFile,
	"PUSHREFCONT",
	"POPCTR c3",
	"DUP",
	"IFNOTJMPREF",
	"DUP",
	"EQINT -1",
	"IFJMPREF",
	"DUP",
	"EQINT -2",
	"IFJMPREF",
	"THROW 11",
)

var saveMyCodeText = lines(saveMyCodeFile,
	"PUSHREFCONT {",
	"  DUP",
	"  SETGLOB 1",
	"  BLESS",
	"  JMPX",
	"}",
	"JMPXDATA",
)

// link assembles text, appends refs to the resulting cell and records the
// debug entries. The entry of the assembled root is moved to the final
// hash; entries of nested cells are kept as they are. want is the number of
// debug entries the assembler must produce, or 0 for any non-zero count.
func (p *Program) link(what string, text []asm.Line, want int, refs ...*cell.Cell) (*cell.Cell, error) {
	res, err := p.asm.Assemble(text)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", what, err)
	}
	switch n := res.Debug.Len(); {
	case want > 0 && n != want:
		return nil, fmt.Errorf("compile %s: assembler produced %d debug entries, want %d", what, n, want)
	case n == 0:
		return nil, fmt.Errorf("compile %s: no instructions", what)
	}
	pre := res.Code.Hash()
	root, ok := res.Debug.Lookup(pre)
	if !ok {
		return nil, fmt.Errorf("compile %s: no debug entry for the assembled cell", what)
	}

	final, err := cell.AppendRefs(res.Code, refs...)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", what, err)
	}
	p.debug.Insert(final.Hash(), root)
	for _, h := range res.Debug.Hashes() {
		if h == pre {
			continue
		}
		e, _ := res.Debug.Lookup(h)
		p.debug.Insert(h, e)
	}
	return final, nil
}

func versionCell(version string) (*cell.Cell, error) {
	if len(version) > maxVersionLen {
		return nil, fmt.Errorf("version string is %d bytes, at most %d fit", len(version), maxVersionLen)
	}
	return cell.FromBytes([]byte(version))
}

// orEmpty substitutes the empty cell for an absent dictionary or entry
// point.
func orEmpty(c *cell.Cell) *cell.Cell {
	if c == nil {
		return cell.Empty()
	}
	return c
}
