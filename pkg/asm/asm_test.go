package asm

import (
	"errors"
	"strings"
	"testing"
)

func assembleText(t *testing.T, file, text string) *Result {
	t.Helper()
	res, err := Assemble(SplitLines(file, 1, text))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return res
}

func TestInternalSelectorEncoding(t *testing.T) {
	res := assembleText(t, "<internal-selector>", "DICTPUSHCONST 32\nDICTUGETJMP\n")
	if got, want := res.Code.String(), "x{F4A420F4A1}"; got != want {
		t.Fatalf("code = %s, want %s", got, want)
	}
	if res.Debug.Len() != 1 {
		t.Fatalf("debug entries = %d, want 1", res.Debug.Len())
	}
	e, ok := res.Debug.Lookup(res.Code.Hash())
	if !ok || e.File != "<internal-selector>" || e.Line != 1 {
		t.Fatalf("debug entry = %+v, %v", e, ok)
	}
}

func TestEntrySelectorEncoding(t *testing.T) {
	src := strings.Join([]string{
		"PUSHREFCONT", "POPCTR c3", "DUP", "IFNOTJMPREF",
		"DUP", "EQINT -1", "IFJMPREF",
		"DUP", "EQINT -2", "IFJMPREF",
		"THROW 11",
	}, "\n")
	res := assembleText(t, "<entry-selector>", src)
	want := "x{8AED5320E30320C0FFE30220C0FEE302F20B}"
	if got := res.Code.String(); got != want {
		t.Fatalf("code = %s, want %s", got, want)
	}
	if res.Code.RefsCount() != 0 {
		t.Fatalf("refs = %d, want 0", res.Code.RefsCount())
	}
}

func TestBlockBecomesReference(t *testing.T) {
	src := "PUSHREFCONT {\n  DUP\n  SETGLOB 1\n  BLESS\n  JMPX\n}\nJMPXDATA\n"
	res := assembleText(t, "<save-my-code>", src)
	if got, want := res.Code.String(), "x{8ADB35}"; got != want {
		t.Fatalf("outer = %s, want %s", got, want)
	}
	if res.Code.RefsCount() != 1 {
		t.Fatalf("outer refs = %d, want 1", res.Code.RefsCount())
	}
	inner := res.Code.Ref(0)
	if got, want := inner.String(), "x{20F861ED1ED9}"; got != want {
		t.Fatalf("inner = %s, want %s", got, want)
	}

	if res.Debug.Len() != 2 {
		t.Fatalf("debug entries = %d, want 2", res.Debug.Len())
	}
	if e, _ := res.Debug.Lookup(res.Code.Hash()); e.Line != 1 {
		t.Fatalf("outer entry line = %d, want 1", e.Line)
	}
	if e, _ := res.Debug.Lookup(inner.Hash()); e.Line != 2 {
		t.Fatalf("inner entry line = %d, want 2", e.Line)
	}
}

func TestIntegerEncodings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"PUSHINT 0", "x{70}"},
		{"PUSHINT -1", "x{7F}"},
		{"PUSHINT 10", "x{7A}"},
		{"PUSHINT 100", "x{8064}"},
		{"PUSHINT -100", "x{809C}"},
		{"PUSHINT 1000", "x{8103E8}"},
		{"THROW 100", "x{F2C064}"},
		{"THROWIFNOT 5", "x{F285}"},
		{"PUSH s20", "x{5614}"},
		{"PUSH s2", "x{22}"},
		{"STU 32", "x{CB1F}"},
		{"CALLDICT 7", "x{F007}"},
		{"PUSHCTR c4", "x{ED44}"},
		{"GETGLOB 2", "x{F842}"},
	}
	for _, tt := range tests {
		res := assembleText(t, "t.code", tt.src)
		if got := res.Code.String(); got != tt.want {
			t.Errorf("%s = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestDirectivesAndCommentsIgnored(t *testing.T) {
	res := assembleText(t, "t.code", ".globl main\n\n  ACCEPT ; take gas\n.loc t.sol, 3\nRET\n")
	if got, want := res.Code.String(), "x{F800DB30}"; got != want {
		t.Fatalf("code = %s, want %s", got, want)
	}
	e, _ := res.Debug.Lookup(res.Code.Hash())
	if e.Line != 3 {
		t.Fatalf("entry line = %d, want 3", e.Line)
	}
}

func TestEmptyProgram(t *testing.T) {
	res := assembleText(t, "t.code", ".globl x\n")
	if !res.Code.IsEmpty() {
		t.Fatalf("code = %s, want empty cell", res.Code)
	}
}

func TestLongProgramContinuesInReference(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("NOP\n")
	}
	res := assembleText(t, "t.code", b.String())
	code := res.Code
	total := 0
	for code != nil {
		total += code.BitsLen()
		if code.RefsCount() == 0 {
			break
		}
		code = code.Ref(code.RefsCount() - 1)
	}
	if total != 300*8 {
		t.Fatalf("chain holds %d bits, want %d", total, 300*8)
	}
	if res.Debug.Len() < 3 {
		t.Fatalf("debug entries = %d, want one per chained cell", res.Debug.Len())
	}
}

func TestErrorsCarryPlaceholder(t *testing.T) {
	_, err := Assemble(SplitLines("p.code", 10, "ACCEPT\nFROB 1\n"))
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("got %v, want *Error", err)
	}
	if aerr.Line != 11 {
		t.Fatalf("error line = %d, want 11", aerr.Line)
	}
	if !strings.Contains(err.Error(), NamePlaceholder) {
		t.Fatalf("error %q lacks name placeholder", err)
	}

	for _, src := range []string{"PUSHREFCONT {\nDUP\n", "}\n", "DUP {\n}\n", "PUSHINT 99999", "THROW 5000"} {
		if _, err := Assemble(SplitLines("p.code", 1, src)); err == nil {
			t.Errorf("Assemble(%q) succeeded", src)
		}
	}
}
