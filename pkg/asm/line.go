// Package asm is a small reference assembler for TVM code. It turns an
// ordered list of instruction lines into a code cell and records, for every
// cell it produces, the source line of that cell's first instruction.
//
// Only the instructions needed by generated dispatchers and simple
// hand-written procedures are supported.
package asm

import "strings"

// Line is one instruction line with its source position.
type Line struct {
	Text string
	File string
	Line int
}

// NewLine returns a Line for text at file:line.
func NewLine(text, file string, line int) Line {
	return Line{Text: text, File: file, Line: line}
}

// SplitLines breaks text into lines numbered from first, all attributed to
// file. Blank lines keep their numbers so later lines report true positions.
func SplitLines(file string, first int, text string) []Line {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	out := make([]Line, 0, len(raw))
	for i, s := range raw {
		out = append(out, Line{Text: s, File: file, Line: first + i})
	}
	return out
}

// instruction text with comments and surrounding space removed
func (l Line) code() string {
	s := l.Text
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
