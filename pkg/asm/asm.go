package asm

import (
	"fmt"
	"strings"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/debugmap"
)

// Result is an assembled code tree plus one debug entry per produced cell,
// keyed by that cell's hash at the time it was built.
type Result struct {
	Code  *cell.Cell
	Debug *debugmap.Map
}

// Assembler assembles instruction lines. The zero value is ready to use.
type Assembler struct{}

// Assemble implements the assembler contract used by the linker.
func (Assembler) Assemble(lines []Line) (*Result, error) {
	return Assemble(lines)
}

// Assemble compiles lines into a code cell. Lines starting with "." are
// directives and are skipped; text after ";" is a comment. An instruction
// that takes a reference may open a block ("PUSHREFCONT {") that is
// compiled into that reference and closed by a line holding "}".
func Assemble(lines []Line) (*Result, error) {
	dbg := debugmap.New()
	code, err := assemble(lines, dbg)
	if err != nil {
		return nil, err
	}
	return &Result{Code: code, Debug: dbg}, nil
}

func assemble(lines []Line, dbg *debugmap.Map) (*cell.Cell, error) {
	var prog []instr
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		text := l.code()
		if text == "" || strings.HasPrefix(text, ".") {
			continue
		}
		if text == "}" {
			return nil, lineErr(l, "unmatched }")
		}

		if strings.HasSuffix(text, "{") {
			op, args := splitMnemonic(strings.TrimSuffix(text, "{"))
			f, ok := refOps[op]
			if !ok {
				return nil, lineErr(l, "%s does not take a block", op)
			}
			if len(args) != 0 {
				return nil, lineErr(l, "%s takes no operands", op)
			}
			end, err := blockEnd(lines, i)
			if err != nil {
				return nil, err
			}
			body, err := assemble(lines[i+1:end], dbg)
			if err != nil {
				return nil, err
			}
			prog = append(prog, instr{value: f.value, bits: f.bits, refs: []*cell.Cell{body}, line: l})
			i = end
			continue
		}

		op, args := splitMnemonic(text)
		in, err := encode(l, op, args)
		if err != nil {
			return nil, err
		}
		prog = append(prog, in)
	}
	return pack(prog, dbg)
}

// blockEnd returns the index of the "}" closing the block opened at open.
func blockEnd(lines []Line, open int) (int, error) {
	depth := 0
	for j := open + 1; j < len(lines); j++ {
		text := lines[j].code()
		switch {
		case text == "}":
			if depth == 0 {
				return j, nil
			}
			depth--
		case strings.HasSuffix(text, "{"):
			depth++
		}
	}
	return 0, lineErr(lines[open], "block is never closed")
}

// pack lays instructions out in cells. When the program does not fit in one
// cell the remainder continues in a cell referenced last, where execution
// falls through implicitly.
func pack(prog []instr, dbg *debugmap.Map) (*cell.Cell, error) {
	if len(prog) == 0 {
		return cell.Empty(), nil
	}

	// suffix totals decide whether the rest fits without a link reference
	restBits := make([]int, len(prog)+1)
	restRefs := make([]int, len(prog)+1)
	for i := len(prog) - 1; i >= 0; i-- {
		restBits[i] = restBits[i+1] + prog[i].bits
		restRefs[i] = restRefs[i+1] + len(prog[i].refs)
	}

	var chunks [][]instr
	start := 0
	for start < len(prog) {
		if restBits[start] <= cell.MaxBits && restRefs[start] <= cell.MaxRefs {
			chunks = append(chunks, prog[start:])
			break
		}
		end, bits, refs := start, 0, 0
		for end < len(prog) && bits+prog[end].bits <= cell.MaxBits && refs+len(prog[end].refs) <= cell.MaxRefs-1 {
			bits += prog[end].bits
			refs += len(prog[end].refs)
			end++
		}
		if end == start {
			return nil, lineErr(prog[start].line, "instruction does not fit in a cell")
		}
		chunks = append(chunks, prog[start:end])
		start = end
	}

	var next *cell.Cell
	for i := len(chunks) - 1; i >= 0; i-- {
		b := cell.NewBuilder()
		for _, in := range chunks[i] {
			if err := b.StoreUInt(in.value, in.bits); err != nil {
				return nil, fmt.Errorf("asm: %w", err)
			}
			for _, r := range in.refs {
				if err := b.StoreRef(r); err != nil {
					return nil, fmt.Errorf("asm: %w", err)
				}
			}
		}
		if next != nil {
			if err := b.StoreRef(next); err != nil {
				return nil, fmt.Errorf("asm: %w", err)
			}
		}
		c, err := b.EndCell()
		if err != nil {
			return nil, fmt.Errorf("asm: %w", err)
		}
		first := chunks[i][0].line
		dbg.Insert(c.Hash(), debugmap.Entry{File: first.File, Line: first.Line})
		next = c
	}
	return next, nil
}
