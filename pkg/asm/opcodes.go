package asm

import (
	"strconv"
	"strings"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// instr is one encoded instruction: up to 64 opcode bits plus the cells it
// carries as references.
type instr struct {
	value uint64
	bits  int
	refs  []*cell.Cell
	line  Line
}

type fixedOp struct {
	value uint64
	bits  int
}

var fixedOps = map[string]fixedOp{
	"NOP":         {0x00, 8},
	"SWAP":        {0x01, 8},
	"DUP":         {0x20, 8},
	"OVER":        {0x21, 8},
	"DROP":        {0x30, 8},
	"NIP":         {0x31, 8},
	"ADD":         {0xA0, 8},
	"SUB":         {0xA1, 8},
	"NEGATE":      {0xA3, 8},
	"INC":         {0xA4, 8},
	"DEC":         {0xA5, 8},
	"MUL":         {0xA8, 8},
	"LESS":        {0xB9, 8},
	"EQUAL":       {0xBA, 8},
	"GREATER":     {0xBC, 8},
	"NEWC":        {0xC8, 8},
	"ENDC":        {0xC9, 8},
	"CTOS":        {0xD0, 8},
	"ENDS":        {0xD1, 8},
	"EXECUTE":     {0xD8, 8},
	"JMPX":        {0xD9, 8},
	"IFRET":       {0xDC, 8},
	"IFNOTRET":    {0xDD, 8},
	"RET":         {0xDB30, 16},
	"RETALT":      {0xDB31, 16},
	"JMPXDATA":    {0xDB35, 16},
	"BLESS":       {0xED1E, 16},
	"PUSHROOT":    {0xED44, 16},
	"POPROOT":     {0xED54, 16},
	"DICTIGETJMP": {0xF4A0, 16},
	"DICTUGETJMP": {0xF4A1, 16},
	"ACCEPT":      {0xF800, 16},
	"COMMIT":      {0xF80F, 16},
	"NOW":         {0xF823, 16},
	"SENDRAWMSG":  {0xFB00, 16},
}

// refOps take their continuation or cell from the next code reference. With
// a trailing block the block becomes that reference; without one the caller
// attaches it after assembly.
var refOps = map[string]fixedOp{
	"PUSHREF":     {0x88, 8},
	"PUSHREFCONT": {0x8A, 8},
	"CALLREF":     {0xDB3C, 16},
	"JMPREF":      {0xDB3D, 16},
	"IFREF":       {0xE300, 16},
	"IFNOTREF":    {0xE301, 16},
	"IFJMPREF":    {0xE302, 16},
	"IFNOTJMPREF": {0xE303, 16},
}

func splitMnemonic(s string) (string, []string) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToUpper(fields[0]), fields[1:]
}

func parseInt(l Line, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, lineErr(l, "invalid integer %q", s)
	}
	return v, nil
}

// parseIndexed parses a register-style operand such as "s3" or "c4".
func parseIndexed(l Line, s string, prefix byte, max int64) (int64, error) {
	s = strings.ToLower(s)
	if len(s) < 2 || s[0] != prefix {
		return 0, lineErr(l, "expected %c-register, got %q", prefix, s)
	}
	v, err := strconv.ParseInt(s[1:], 10, 64)
	if err != nil || v < 0 || v > max {
		return 0, lineErr(l, "register %q out of range", s)
	}
	return v, nil
}

func wantArgs(l Line, op string, args []string, n int) error {
	if len(args) != n {
		return lineErr(l, "%s takes %d operand(s), got %d", op, n, len(args))
	}
	return nil
}

// encode assembles one instruction without a block.
func encode(l Line, op string, args []string) (instr, error) {
	if f, ok := fixedOps[op]; ok {
		if err := wantArgs(l, op, args, 0); err != nil {
			return instr{}, err
		}
		return instr{value: f.value, bits: f.bits, line: l}, nil
	}
	if f, ok := refOps[op]; ok {
		if err := wantArgs(l, op, args, 0); err != nil {
			return instr{}, err
		}
		return instr{value: f.value, bits: f.bits, line: l}, nil
	}

	one := func() (int64, error) {
		if err := wantArgs(l, op, args, 1); err != nil {
			return 0, err
		}
		return parseInt(l, args[0])
	}
	in := instr{line: l}

	switch op {
	case "PUSHINT", "INT":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		switch {
		case v >= -5 && v <= 10:
			in.value, in.bits = 0x70|uint64(v)&0xF, 8
		case v >= -128 && v <= 127:
			in.value, in.bits = 0x8000|uint64(v)&0xFF, 16
		case v >= -32768 && v <= 32767:
			in.value, in.bits = 0x810000|uint64(v)&0xFFFF, 24
		default:
			return instr{}, lineErr(l, "integer %d out of range", v)
		}
	case "EQINT":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		if v < -128 || v > 127 {
			return instr{}, lineErr(l, "EQINT operand %d out of range", v)
		}
		in.value, in.bits = 0xC000|uint64(v)&0xFF, 16
	case "THROW", "THROWIF", "THROWIFNOT":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		short := map[string]uint64{"THROW": 0xF200, "THROWIF": 0xF240, "THROWIFNOT": 0xF280}[op]
		long := map[string]uint64{"THROW": 0xF2C000, "THROWIF": 0xF2D000, "THROWIFNOT": 0xF2E000}[op]
		switch {
		case v >= 0 && v < 64:
			in.value, in.bits = short|uint64(v), 16
		case v >= 0 && v < 2048:
			in.value, in.bits = long|uint64(v), 24
		default:
			return instr{}, lineErr(l, "exception code %d out of range", v)
		}
	case "GETGLOB", "SETGLOB":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		if v < 1 || v > 31 {
			return instr{}, lineErr(l, "global index %d out of range", v)
		}
		base := uint64(0xF840)
		if op == "SETGLOB" {
			base = 0xF860
		}
		in.value, in.bits = base|uint64(v), 16
	case "PUSHCTR", "POPCTR":
		if err := wantArgs(l, op, args, 1); err != nil {
			return instr{}, err
		}
		v, err := parseIndexed(l, args[0], 'c', 7)
		if err != nil {
			return instr{}, err
		}
		if v == 6 {
			return instr{}, lineErr(l, "control register c6 does not exist")
		}
		base := uint64(0xED40)
		if op == "POPCTR" {
			base = 0xED50
		}
		in.value, in.bits = base|uint64(v), 16
	case "PUSH", "POP":
		if err := wantArgs(l, op, args, 1); err != nil {
			return instr{}, err
		}
		v, err := parseIndexed(l, args[0], 's', 255)
		if err != nil {
			return instr{}, err
		}
		short, long := uint64(0x20), uint64(0x5600)
		if op == "POP" {
			short, long = 0x30, 0x5700
		}
		if v < 16 {
			in.value, in.bits = short|uint64(v), 8
		} else {
			in.value, in.bits = long|uint64(v), 16
		}
	case "XCHG":
		if err := wantArgs(l, op, args, 1); err != nil {
			return instr{}, err
		}
		v, err := parseIndexed(l, args[0], 's', 15)
		if err != nil || v == 0 {
			return instr{}, lineErr(l, "XCHG operand %q out of range", args[0])
		}
		in.value, in.bits = uint64(v), 8
	case "STU", "STI", "LDU", "LDI":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		if v < 1 || v > 256 {
			return instr{}, lineErr(l, "%s width %d out of range", op, v)
		}
		base := map[string]uint64{"STI": 0xCA00, "STU": 0xCB00, "LDI": 0xD200, "LDU": 0xD300}[op]
		in.value, in.bits = base|uint64(v-1), 16
	case "CALLDICT", "CALL":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		switch {
		case v >= 0 && v < 256:
			in.value, in.bits = 0xF000|uint64(v), 16
		case v >= 0 && v < 1<<14:
			in.value, in.bits = 0xF10000|uint64(v), 24
		default:
			return instr{}, lineErr(l, "method id %d out of range", v)
		}
	case "JMPDICT":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		if v < 0 || v >= 1<<14 {
			return instr{}, lineErr(l, "method id %d out of range", v)
		}
		in.value, in.bits = 0xF14000|uint64(v), 24
	case "DICTPUSHCONST":
		v, err := one()
		if err != nil {
			return instr{}, err
		}
		if v < 0 || v > 1023 {
			return instr{}, lineErr(l, "key width %d out of range", v)
		}
		in.value, in.bits = 0xF4A400|uint64(v), 24
	default:
		return instr{}, lineErr(l, "unknown instruction %s", op)
	}
	return in, nil
}
