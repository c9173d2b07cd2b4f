package cell

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestSerializeEmptyCell(t *testing.T) {
	data, err := SerializeBOC(Empty(), BOCOptions{})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}
	const want = "b5ee9c72010101010002000000"
	if got := hex.EncodeToString(data); got != want {
		t.Fatalf("empty cell boc = %s, want %s", got, want)
	}
}

func TestBOCRoundTrip(t *testing.T) {
	root := sampleTree(t)
	for _, opts := range []BOCOptions{{}, {Index: true}, {CRC32C: true}, {Index: true, CRC32C: true}} {
		data, err := SerializeBOC(root, opts)
		if err != nil {
			t.Fatalf("SerializeBOC(%+v): %v", opts, err)
		}
		got, err := ReadBOCRoot(data)
		if err != nil {
			t.Fatalf("ReadBOCRoot(%+v): %v", opts, err)
		}
		if got.Hash() != root.Hash() {
			t.Fatalf("round trip (%+v) hash = %s, want %s", opts, got.Hash(), root.Hash())
		}
	}
}

func TestBOCDeduplicatesSharedSubtrees(t *testing.T) {
	leaf := mustCell(t, func(b *Builder) error { return b.StoreUInt(0xDEAD, 16) })
	twin := mustCell(t, func(b *Builder) error { return b.StoreUInt(0xDEAD, 16) })
	root := mustCell(t, func(b *Builder) error {
		if err := b.StoreRef(leaf); err != nil {
			return err
		}
		return b.StoreRef(twin)
	})

	order := topoOrder(root)
	if len(order) != 2 {
		t.Fatalf("topoOrder returned %d cells, want 2", len(order))
	}
	if order[0] != root {
		t.Fatal("root is not first in serialization order")
	}

	data, err := SerializeBOC(root, BOCOptions{})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}
	got, err := ReadBOCRoot(data)
	if err != nil {
		t.Fatalf("ReadBOCRoot: %v", err)
	}
	if got.Ref(0) != got.Ref(1) {
		t.Fatal("decoded shared subtree is not a single shared cell")
	}
}

func TestBOCDeterministic(t *testing.T) {
	a, err := SerializeBOC(sampleTree(t), BOCOptions{})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}
	b, err := SerializeBOC(sampleTree(t), BOCOptions{})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("serialization of equal trees differs")
	}
}

func TestBOCRejectsCorruption(t *testing.T) {
	data, err := SerializeBOC(sampleTree(t), BOCOptions{CRC32C: true})
	if err != nil {
		t.Fatalf("SerializeBOC: %v", err)
	}

	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)-6] ^= 0x01
	if _, err := DeserializeBOC(corrupt); !errors.Is(err, ErrInvalidBOC) {
		t.Fatalf("corrupted payload: got %v, want ErrInvalidBOC", err)
	}

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 0
	if _, err := DeserializeBOC(badMagic); !errors.Is(err, ErrInvalidBOC) {
		t.Fatalf("bad magic: got %v, want ErrInvalidBOC", err)
	}

	if _, err := DeserializeBOC(data[:len(data)-3]); !errors.Is(err, ErrInvalidBOC) {
		t.Fatalf("truncated: got %v, want ErrInvalidBOC", err)
	}
}

func TestBOCRejectsBackwardReference(t *testing.T) {
	// two cells, the second pointing back at the first
	raw, err := hex.DecodeString("b5ee9c72010102010005000000010000")
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if _, err := DeserializeBOC(raw); !errors.Is(err, ErrInvalidBOC) {
		t.Fatalf("backward reference: got %v, want ErrInvalidBOC", err)
	}
}

func sampleTree(t *testing.T) *Cell {
	t.Helper()
	leafA := mustCell(t, func(b *Builder) error { return b.StoreUInt(0x1234, 16) })
	leafB := mustCell(t, func(b *Builder) error { return b.StoreUInt(5, 3) })
	mid := mustCell(t, func(b *Builder) error {
		if err := b.StoreBytes([]byte("mid")); err != nil {
			return err
		}
		if err := b.StoreRef(leafA); err != nil {
			return err
		}
		return b.StoreRef(leafB)
	})
	return mustCell(t, func(b *Builder) error {
		if err := b.StoreInt(-7, 9); err != nil {
			return err
		}
		if err := b.StoreRef(mid); err != nil {
			return err
		}
		return b.StoreRef(leafA)
	})
}
