// Package dict implements TVM HashmapE dictionaries: fixed-width bit keys
// mapped to cell values, encoded as a canonical binary trie of cells.
//
// The trie shape depends only on the key set, so the root hash is the same
// for any insertion order.
package dict

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// Dictionary maps keys of a fixed bit width (at most 64) to cell values.
// Values are stored inline in trie leaves: the value's bits and references
// follow the leaf label.
type Dictionary struct {
	keyBits int
	values  map[uint64]*cell.Cell
}

// New returns an empty dictionary with keyBits-wide keys.
func New(keyBits int) *Dictionary {
	if keyBits <= 0 || keyBits > 64 {
		panic(fmt.Sprintf("dict: unsupported key width %d", keyBits))
	}
	return &Dictionary{keyBits: keyBits, values: make(map[uint64]*cell.Cell)}
}

// KeyBits returns the key width.
func (d *Dictionary) KeyBits() int { return d.keyBits }

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.values) }

func (d *Dictionary) mask(key uint64) uint64 {
	if d.keyBits == 64 {
		return key
	}
	return key & (uint64(1)<<uint(d.keyBits) - 1)
}

// Set stores v under key, returning the previous value if any. Keys wider
// than the dictionary are truncated to the key width, so signed keys may be
// passed as their two's complement.
func (d *Dictionary) Set(key uint64, v *cell.Cell) (*cell.Cell, bool) {
	key = d.mask(key)
	prev, ok := d.values[key]
	d.values[key] = v
	return prev, ok
}

// SetInt stores v under a signed key.
func (d *Dictionary) SetInt(key int64, v *cell.Cell) (*cell.Cell, bool) {
	return d.Set(uint64(key), v)
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key uint64) (*cell.Cell, bool) {
	v, ok := d.values[d.mask(key)]
	return v, ok
}

// Remove deletes key and returns the removed value.
func (d *Dictionary) Remove(key uint64) (*cell.Cell, bool) {
	key = d.mask(key)
	v, ok := d.values[key]
	if ok {
		delete(d.values, key)
	}
	return v, ok
}

// Keys returns all keys in ascending unsigned order.
func (d *Dictionary) Keys() []uint64 {
	keys := make([]uint64, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Root builds the trie and returns its root cell, or nil for an empty
// dictionary.
func (d *Dictionary) Root() (*cell.Cell, error) {
	root, _, err := d.build(false)
	return root, err
}

// Leaves builds the trie and returns the leaf cell holding each key.
func (d *Dictionary) Leaves() (map[uint64]*cell.Cell, error) {
	_, leaves, err := d.build(true)
	return leaves, err
}

// Build returns both the root and the leaf cell of every key from a single
// pass over the trie.
func (d *Dictionary) Build() (*cell.Cell, map[uint64]*cell.Cell, error) {
	return d.build(true)
}

func (d *Dictionary) build(collect bool) (*cell.Cell, map[uint64]*cell.Cell, error) {
	if len(d.values) == 0 {
		return nil, nil, nil
	}
	var leaves map[uint64]*cell.Cell
	if collect {
		leaves = make(map[uint64]*cell.Cell, len(d.values))
	}
	root, err := d.buildNode(d.Keys(), 0, d.keyBits, leaves)
	if err != nil {
		return nil, nil, err
	}
	return root, leaves, nil
}

// bitAt returns bit i (0 = most significant) of a keyBits-wide key.
func (d *Dictionary) bitAt(key uint64, i int) uint64 {
	return key >> uint(d.keyBits-1-i) & 1
}

// buildNode encodes the sub-trie for keys that share their first pos bits;
// n bits remain below pos.
func (d *Dictionary) buildNode(keys []uint64, pos, n int, leaves map[uint64]*cell.Cell) (*cell.Cell, error) {
	l := n
	if len(keys) > 1 {
		l = commonPrefix(keys[0], keys[len(keys)-1], d.keyBits, pos, n)
	}
	var label uint64
	for i := 0; i < l; i++ {
		label = label<<1 | d.bitAt(keys[0], pos+i)
	}

	b := cell.NewBuilder()
	if err := storeLabel(b, label, l, n); err != nil {
		return nil, fmt.Errorf("dict: store label: %w", err)
	}

	if l == n {
		key := keys[0]
		if err := b.StoreCell(d.values[key]); err != nil {
			return nil, fmt.Errorf("dict: value for key %x does not fit its leaf: %w", key, err)
		}
		leaf, err := b.EndCell()
		if err != nil {
			return nil, err
		}
		if leaves != nil {
			leaves[key] = leaf
		}
		return leaf, nil
	}

	// keys are sorted, so the branch bit splits them into two runs
	split := sort.Search(len(keys), func(i int) bool { return d.bitAt(keys[i], pos+l) == 1 })
	left, err := d.buildNode(keys[:split], pos+l+1, n-l-1, leaves)
	if err != nil {
		return nil, err
	}
	right, err := d.buildNode(keys[split:], pos+l+1, n-l-1, leaves)
	if err != nil {
		return nil, err
	}
	if err := b.StoreRef(left); err != nil {
		return nil, err
	}
	if err := b.StoreRef(right); err != nil {
		return nil, err
	}
	return b.EndCell()
}

// commonPrefix returns how many of the n bits starting at pos are equal in
// lo and hi. For a sorted run, the prefix shared by its extremes is shared by
// all members.
func commonPrefix(lo, hi uint64, keyBits, pos, n int) int {
	diff := (lo ^ hi) << uint(64-keyBits) << uint(pos)
	l := bits.LeadingZeros64(diff)
	if l > n {
		l = n
	}
	return l
}

// StoreHashmapE writes d in HashmapE form: a 0 bit when empty, otherwise a
// 1 bit and a reference to the root.
func StoreHashmapE(b *cell.Builder, d *Dictionary) error {
	root, err := d.Root()
	if err != nil {
		return err
	}
	if root == nil {
		return b.StoreBit(false)
	}
	if err := b.StoreBit(true); err != nil {
		return err
	}
	return b.StoreRef(root)
}
