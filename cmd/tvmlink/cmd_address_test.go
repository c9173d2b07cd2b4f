package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressCmdDecodesUserFriendlyForm(t *testing.T) {
	out := runCmd(t, newAddressCmd(), "kf/8uRo6OBbQ97jCx2EIuKm8Wmt6Vb15+KsQHFLbKSMiYIny")
	want := "raw: -1:fcb91a3a3816d0f7b8c2c76108b8a9bc5a6b7a55bd79f8ab101c52db29232260\nbounceable: true\ntestnet: true\n"
	if out != want {
		t.Fatalf("address output = %q, want %q", out, want)
	}
}

func TestAddressCmdRendersStateFile(t *testing.T) {
	dir := writeCompileProject(t)
	target := filepath.Join(dir, "c.tvc")
	runCmd(t, newCompileCmd(), dir, "--output", target)

	out := runCmd(t, newAddressCmd(), target, "--workchain", "-1")
	if !strings.HasPrefix(out, "raw: -1:") {
		t.Fatalf("address output = %q", out)
	}
	if n := strings.Count(out, "bounceable: "); n != 4 {
		t.Fatalf("address output has %d renderings, want 4:\n%s", n, out)
	}
}

func TestVersionCmd(t *testing.T) {
	out := runCmd(t, newVersionCmd())
	if out != "tvmlink "+version+"\n" {
		t.Fatalf("version output = %q", out)
	}
}
