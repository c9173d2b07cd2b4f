package program

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/state"
)

type fakeEncoder struct {
	function string
	params   string
}

func (e *fakeEncoder) EncodeCall(_ context.Context, _, function, params string) (*cell.Cell, error) {
	e.function, e.params = function, params
	return cell.FromBytes([]byte(function))
}

type fakeSimulator struct {
	exitCode int
	success  bool
	data     *cell.Cell
	got      SimRequest
}

func (s *fakeSimulator) Run(_ context.Context, req SimRequest) (*SimResult, error) {
	s.got = req
	out := *req.State
	out.Data = s.data
	return &SimResult{ExitCode: s.exitCode, Success: s.success, State: &out}, nil
}

var fixedNow = time.Unix(1700000000, 0)

func TestConstructorFailureSurfacesExitCode(t *testing.T) {
	sim := &fakeSimulator{exitCode: 52}
	p := New(sampleSource(), WithABIEncoder(&fakeEncoder{}), WithSimulator(sim))
	si, err := p.CompileToState()
	if err != nil {
		t.Fatalf("CompileToState: %v", err)
	}
	_, err = p.ApplyConstructor(context.Background(), si, "c.abi.json", `{"x":1}`, false)
	var cerr *ConstructorError
	if !errors.As(err, &cerr) || cerr.ExitCode != 52 {
		t.Fatalf("got %v, want ConstructorError with exit code 52", err)
	}
}

func TestConstructorSuccessStripsConstructor(t *testing.T) {
	newData, err := cell.FromBytes([]byte{0xDA, 0x7A})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	enc := &fakeEncoder{}
	sim := &fakeSimulator{success: true, data: newData}
	p := New(sampleSource(), WithABIEncoder(enc), WithSimulator(sim), WithClock(func() time.Time { return fixedNow }))

	si, err := p.CompileToState()
	if err != nil {
		t.Fatalf("CompileToState: %v", err)
	}
	out, err := p.ApplyConstructor(context.Background(), si, "c.abi.json", `{"owner":"0x01"}`, true)
	if err != nil {
		t.Fatalf("ApplyConstructor: %v", err)
	}

	if enc.function != "constructor" || enc.params != `{"owner":"0x01"}` {
		t.Fatalf("encoder called with %q %q", enc.function, enc.params)
	}
	if sim.got.Now != uint32(fixedNow.Unix()) || sim.got.Balance != 0 || sim.got.Bounce || !sim.got.Trace {
		t.Fatalf("simulator request = %+v", sim.got)
	}
	if sim.got.Message.RefsCount() != 1 || string(sim.got.Message.Ref(0).Data()) != "constructor" {
		t.Fatal("message does not carry the encoded body")
	}

	if !out.Data.Equal(newData) {
		t.Fatal("state data was not replaced with the simulator's data")
	}
	for _, k := range methodKeys(t, out.Code.Ref(0).Ref(0)) {
		if k == 0x1234 {
			t.Fatal("constructor still present in the rebuilt code")
		}
	}
	if out.Code.Hash() == si.Code.Hash() {
		t.Fatal("code was not rebuilt")
	}
}

func TestArtifactRequiresABI(t *testing.T) {
	p := New(sampleSource())
	_, err := p.CompileToArtifact(context.Background(), ArtifactOptions{CtorParams: "{}", Dir: t.TempDir()})
	if !errors.Is(err, ErrABIRequired) {
		t.Fatalf("got %v, want ErrABIRequired", err)
	}
}

func TestArtifactWithDataOverride(t *testing.T) {
	dir := t.TempDir()
	override, err := cell.FromBytes([]byte("override"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	raw, err := cell.SerializeBOC(override, cell.BOCOptions{CRC32C: true})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}
	dataFile := filepath.Join(dir, "data.boc")
	if err := os.WriteFile(dataFile, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	path, err := New(sampleSource()).CompileToArtifact(context.Background(), ArtifactOptions{
		DataFile: dataFile,
		Dir:      dir,
		Output:   "contract.tvc",
		Out:      &out,
	})
	if err != nil {
		t.Fatalf("CompileToArtifact: %v", err)
	}
	si, err := state.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !si.Data.Equal(override) {
		t.Fatal("data override was not applied")
	}
	hash, err := si.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Contract successfully compiled. Saved to file contract.tvc.") ||
		!strings.Contains(text, "Contract address: "+hash.String()) {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestArtifactDefaultNamePrintsAddresses(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	path, err := New(sampleSource()).CompileToArtifact(context.Background(), ArtifactOptions{Dir: dir, Workchain: -1, Out: &out})
	if err != nil {
		t.Fatalf("CompileToArtifact: %v", err)
	}
	if !strings.HasSuffix(path, ".tvc") || !strings.Contains(out.String(), "Bounceable address (for later access): ") {
		t.Fatalf("path %s, output:\n%s", path, out.String())
	}
}
