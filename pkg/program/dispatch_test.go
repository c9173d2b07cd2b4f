package program

import (
	"errors"
	"strings"
	"testing"

	"github.com/odvcencio/tvmlink/pkg/asm"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/methdict"
)

// runEntrySelector executes the dispatcher instructions at the start of code
// for a transaction-kind flag. It returns the continuation jumped to, or the
// exception thrown.
func runEntrySelector(t *testing.T, code *cell.Cell, flag int64) (*cell.Cell, int) {
	t.Helper()
	s := code.BeginParse()
	stack := []int64{flag}
	pop := func() int64 {
		if len(stack) == 0 {
			t.Fatal("stack underflow")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	must := func(v uint64, err error) uint64 {
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return v
	}
	for s.BitsLeft() > 0 {
		switch op := must(s.LoadUInt(8)); op {
		case 0x8A: // PUSHREFCONT, consumed by the following POPCTR
			if _, err := s.LoadRef(); err != nil {
				t.Fatalf("PUSHREFCONT: %v", err)
			}
		case 0xED:
			if sub := must(s.LoadUInt(8)); sub != 0x53 {
				t.Fatalf("unexpected ED%02X", sub)
			}
		case 0x20:
			v := pop()
			stack = append(stack, v, v)
		case 0xC0:
			n, err := s.LoadInt(8)
			if err != nil {
				t.Fatalf("EQINT: %v", err)
			}
			eq := int64(0)
			if pop() == n {
				eq = -1
			}
			stack = append(stack, eq)
		case 0xE3:
			sub := must(s.LoadUInt(8))
			ref, err := s.LoadRef()
			if err != nil {
				t.Fatalf("E3%02X: %v", sub, err)
			}
			x := pop()
			if (sub == 0x03 && x == 0) || (sub == 0x02 && x != 0) {
				return ref, 0
			}
		case 0xF2:
			return nil, int(must(s.LoadUInt(8)))
		default:
			t.Fatalf("unexpected opcode %02X", op)
		}
	}
	t.Fatal("dispatcher fell through")
	return nil, 0
}

func TestTickTockDispatch(t *testing.T) {
	src := &fakeSource{internals: []methdict.Procedure{proc(methdict.IDTickTock, "on_ticktock", "ACCEPT")}}
	code, err := New(src).CompileCode(false)
	if err != nil {
		t.Fatalf("CompileCode: %v", err)
	}

	target, exit := runEntrySelector(t, code, -2)
	if exit != 0 || target == nil || target.String() != "x{F800}" {
		t.Fatalf("flag -2: target %v, exit %d", target, exit)
	}
	for _, flag := range []int64{1, 5, -3, 42} {
		if target, exit := runEntrySelector(t, code, flag); target != nil || exit != 11 {
			t.Fatalf("flag %d: target %v, exit %d; want exception 11", flag, target, exit)
		}
	}
	for _, flag := range []int64{0, -1} {
		target, _ := runEntrySelector(t, code, flag)
		if target == nil || !target.IsEmpty() {
			t.Fatalf("flag %d: target %v, want the empty entry point", flag, target)
		}
	}
}

func TestSaveMyCodeWrapper(t *testing.T) {
	src := sampleSource()
	src.saveMyCode = true
	src.version = "0.42.1"
	p := New(src)
	code, err := p.CompileCode(false)
	if err != nil {
		t.Fatalf("CompileCode: %v", err)
	}
	if got := code.String(); got != "x{8ADB35}" || code.RefsCount() != 2 {
		t.Fatalf("wrapper = %s with %d refs", got, code.RefsCount())
	}
	inner := code.Ref(0)
	if got := inner.String(); got != "x{20F861ED1ED9}" {
		t.Fatalf("wrapper continuation = %s", got)
	}
	if got := code.Ref(1).String(); got != entrySelectorBits {
		t.Fatalf("wrapped selector = %s", got)
	}

	dbg := p.DebugMap()
	if e, ok := dbg.Lookup(code.Hash()); !ok || e.File != "<save-my-code>" || e.Line != 1 {
		t.Fatalf("wrapper debug entry = %+v, %v", e, ok)
	}
	if e, ok := dbg.Lookup(inner.Hash()); !ok || e.Line != 2 {
		t.Fatalf("continuation debug entry = %+v, %v", e, ok)
	}

	v, err := CodeVersion(code)
	if err != nil {
		t.Fatalf("CodeVersion: %v", err)
	}
	if v != "0.42.1" {
		t.Fatalf("CodeVersion = %q", v)
	}
}

func TestCodeVersionAbsent(t *testing.T) {
	code, err := New(sampleSource()).CompileCode(false)
	if err != nil {
		t.Fatalf("CompileCode: %v", err)
	}
	if _, err := CodeVersion(code); !errors.Is(err, ErrNoVersion) {
		t.Fatalf("got %v, want ErrNoVersion", err)
	}
	if _, err := CodeVersion(cell.Empty()); !errors.Is(err, ErrNoVersion) {
		t.Fatalf("empty code: got %v, want ErrNoVersion", err)
	}
}

func TestVersionTooLong(t *testing.T) {
	src := sampleSource()
	src.version = strings.Repeat("v", 128)
	if _, err := New(src).CompileCode(false); err == nil {
		t.Fatal("CompileCode accepted a version that cannot fit in a cell")
	}
}

func TestLegacyLayout(t *testing.T) {
	src := sampleSource()
	src.entry = asm.SplitLines("main.code", 1, "PUSHINT 1\nNOP\n")
	p := New(src)
	if !p.Legacy() {
		t.Fatal("source with entry lines did not select the legacy layout")
	}
	code, err := p.CompileCode(false)
	if err != nil {
		t.Fatalf("CompileCode: %v", err)
	}
	if got := code.String(); got != "x{7100}" || code.RefsCount() != 2 {
		t.Fatalf("main selector = %s with %d refs", got, code.RefsCount())
	}

	// public dictionary: internals and publics
	publicKeys := methodKeys(t, code.Ref(0))
	if len(publicKeys) != 4 {
		t.Fatalf("public dictionary ids = %v", publicKeys)
	}
	internal := code.Ref(1)
	if got := internal.String(); got != "x{F4A420F4A1}" || internal.RefsCount() != 1 {
		t.Fatalf("internal selector = %s with %d refs", got, internal.RefsCount())
	}
	// internal dictionary: privates and internals
	internalKeys := methodKeys(t, internal.Ref(0))
	if len(internalKeys) != 3 {
		t.Fatalf("internal dictionary ids = %v", internalKeys)
	}

	if e, ok := p.DebugMap().Lookup(code.Hash()); !ok || e.File != "main.code" || e.Line != 1 {
		t.Fatalf("main selector debug entry = %+v, %v", e, ok)
	}

	stripped, err := p.CompileCode(true)
	if err != nil {
		t.Fatalf("CompileCode: %v", err)
	}
	if n := len(methodKeys(t, stripped.Ref(0))); n != 3 {
		t.Fatalf("public dictionary after constructor removal holds %d ids, want 3", n)
	}
}

func TestCurrentLayoutSelected(t *testing.T) {
	if New(sampleSource()).Legacy() {
		t.Fatal("source without entry lines selected the legacy layout")
	}
}
