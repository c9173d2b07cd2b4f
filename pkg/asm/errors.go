package asm

import "fmt"

// NamePlaceholder stands in for the procedure name in assembler errors.
// The assembler only sees lines, so callers that know which procedure they
// were assembling replace it before reporting.
const NamePlaceholder = "_name_"

// Error is a failure to assemble one line.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, NamePlaceholder, e.Msg)
}

func lineErr(l Line, format string, args ...any) *Error {
	return &Error{File: l.File, Line: l.Line, Msg: fmt.Sprintf(format, args...)}
}
