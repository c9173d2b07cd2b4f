package dict

import (
	"math/rand"
	"testing"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

func TestEmptyDictionaryHasNoRoot(t *testing.T) {
	d := New(32)
	root, err := d.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root != nil {
		t.Fatalf("empty dictionary root = %s, want nil", root)
	}

	b := cell.NewBuilder()
	if err := StoreHashmapE(b, d); err != nil {
		t.Fatalf("StoreHashmapE: %v", err)
	}
	if b.BitsUsed() != 1 || b.RefsUsed() != 0 {
		t.Fatalf("empty HashmapE used %d bits and %d refs, want 1 and 0", b.BitsUsed(), b.RefsUsed())
	}
}

func TestSingleLeafUsesLongLabel(t *testing.T) {
	d := New(8)
	d.Set(0x05, cell.Empty())
	root, err := d.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	// hml_long: 10, length 8 in 4 bits, then the 8 key bits
	if root.BitsLen() != 14 || root.RefsCount() != 0 {
		t.Fatalf("leaf has %d bits and %d refs, want 14 and 0", root.BitsLen(), root.RefsCount())
	}
	got, err := root.BeginParse().LoadUInt(14)
	if err != nil {
		t.Fatalf("LoadUInt: %v", err)
	}
	if want := uint64(0b10_1000_00000101); got != want {
		t.Fatalf("leaf bits = %014b, want %014b", got, want)
	}
}

func TestLabelEncodings(t *testing.T) {
	tests := []struct {
		name     string
		label    uint64
		l, n     int
		wantBits int
	}{
		{"empty", 0, 0, 32, 2},
		{"short single bit", 1, 1, 32, 4},
		{"same zeros", 0, 20, 32, 3 + 6},
		{"same ones", 0xFFFFF, 20, 32, 3 + 6},
		{"long mixed", 0xABCDE, 20, 32, 2 + 6 + 20},
		{"short beats long", 0b101, 3, 64, 2 + 3 + 3},
	}
	for _, tt := range tests {
		b := cell.NewBuilder()
		if err := storeLabel(b, tt.label, tt.l, tt.n); err != nil {
			t.Fatalf("%s: storeLabel: %v", tt.name, err)
		}
		if b.BitsUsed() != tt.wantBits {
			t.Errorf("%s: label used %d bits, want %d", tt.name, b.BitsUsed(), tt.wantBits)
		}
		c, err := b.EndCell()
		if err != nil {
			t.Fatalf("%s: EndCell: %v", tt.name, err)
		}
		label, l, err := loadLabel(c.BeginParse(), tt.n)
		if err != nil {
			t.Fatalf("%s: loadLabel: %v", tt.name, err)
		}
		if label != tt.label || l != tt.l {
			t.Errorf("%s: loadLabel = %x/%d, want %x/%d", tt.name, label, l, tt.label, tt.l)
		}
	}
}

func TestRootIndependentOfInsertionOrder(t *testing.T) {
	keys := []uint64{0, 1, 2, 7, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFE, 0xFFFFFFFF, 0x12345678}
	build := func(order []uint64) cell.Hash {
		d := New(32)
		for _, k := range order {
			v, err := cell.FromBytes([]byte{byte(k), byte(k >> 24)})
			if err != nil {
				t.Fatalf("FromBytes: %v", err)
			}
			d.Set(k, v)
		}
		root, err := d.Root()
		if err != nil {
			t.Fatalf("Root: %v", err)
		}
		return root.Hash()
	}

	want := build(keys)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]uint64(nil), keys...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := build(shuffled); got != want {
			t.Fatalf("order %v: root %s, want %s", shuffled, got, want)
		}
	}
}

func TestFromRootRoundTrip(t *testing.T) {
	d := New(64)
	for _, k := range []int64{-1, -2, 0, 1, 42, 1 << 40} {
		v, err := cell.FromBytes([]byte{0xCA, 0xFE, byte(k)})
		if err != nil {
			t.Fatalf("FromBytes: %v", err)
		}
		d.SetInt(k, v)
	}
	root, err := d.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	got, err := FromRoot(64, root)
	if err != nil {
		t.Fatalf("FromRoot: %v", err)
	}
	if got.Len() != d.Len() {
		t.Fatalf("decoded %d entries, want %d", got.Len(), d.Len())
	}
	for _, k := range d.Keys() {
		want, _ := d.Get(k)
		v, ok := got.Get(k)
		if !ok || !v.Equal(want) {
			t.Fatalf("key %x: got %v, want %v", k, v, want)
		}
	}

	again, err := got.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if again.Hash() != root.Hash() {
		t.Fatal("re-encoded dictionary has a different root")
	}
}

func TestLoadHashmapE(t *testing.T) {
	d := New(32)
	d.Set(3, cell.Empty())
	b := cell.NewBuilder()
	if err := StoreHashmapE(b, d); err != nil {
		t.Fatalf("StoreHashmapE: %v", err)
	}
	c, err := b.EndCell()
	if err != nil {
		t.Fatalf("EndCell: %v", err)
	}
	got, err := LoadHashmapE(c.BeginParse(), 32)
	if err != nil {
		t.Fatalf("LoadHashmapE: %v", err)
	}
	if _, ok := got.Get(3); !ok || got.Len() != 1 {
		t.Fatalf("LoadHashmapE returned %d entries", got.Len())
	}
}

func TestRemove(t *testing.T) {
	d := New(16)
	d.Set(1, cell.Empty())
	d.Set(2, cell.Empty())
	if _, ok := d.Remove(1); !ok {
		t.Fatal("Remove(1) reported missing key")
	}
	if _, ok := d.Remove(1); ok {
		t.Fatal("second Remove(1) reported a value")
	}

	single := New(16)
	single.Set(2, cell.Empty())
	a, err := d.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	b, err := single.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if a.Hash() != b.Hash() {
		t.Fatal("dictionary after Remove differs from one built without the key")
	}
}

func TestSetMasksToKeyWidth(t *testing.T) {
	d := New(32)
	d.SetInt(-1, cell.Empty())
	if _, ok := d.Get(0xFFFFFFFF); !ok {
		t.Fatal("SetInt(-1) not visible as 0xFFFFFFFF")
	}
}

func TestLeavesMatchTrie(t *testing.T) {
	d := New(32)
	for _, k := range []uint64{10, 20, 30} {
		d.Set(k, cell.Empty())
	}
	leaves, err := d.Leaves()
	if err != nil {
		t.Fatalf("Leaves: %v", err)
	}
	if len(leaves) != 3 {
		t.Fatalf("Leaves returned %d cells, want 3", len(leaves))
	}
	seen := map[cell.Hash]bool{}
	for _, leaf := range leaves {
		seen[leaf.Hash()] = true
	}
	root, err := d.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	found := 0
	var walk func(c *cell.Cell)
	walk = func(c *cell.Cell) {
		if seen[c.Hash()] {
			found++
		}
		for _, r := range c.Refs() {
			walk(r)
		}
	}
	walk(root)
	if found != 3 {
		t.Fatalf("found %d leaves in the trie, want 3", found)
	}
}

func TestLeafOverflow(t *testing.T) {
	d := New(32)
	big := cell.NewBuilder()
	if err := big.StoreBits(make([]byte, 128), cell.MaxBits); err != nil {
		t.Fatalf("StoreBits: %v", err)
	}
	v, err := big.EndCell()
	if err != nil {
		t.Fatalf("EndCell: %v", err)
	}
	d.Set(1, v)
	if _, err := d.Root(); err == nil {
		t.Fatal("Root succeeded with a value that cannot fit its leaf")
	}
}
