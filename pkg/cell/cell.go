// Package cell implements the content-addressed cell tree used by TVM
// contracts: immutable cells with up to 1023 data bits and four ordered
// references, identified by the SHA-256 of their representation.
package cell

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// MaxBits is the data capacity of a single cell.
	MaxBits = 1023
	// MaxRefs is the maximum number of child references of a single cell.
	MaxRefs = 4
	// MaxDepth bounds the height of a cell tree.
	MaxDepth = 1024
)

// Hash is the 32-byte representation hash of a cell.
type Hash [32]byte

// String returns the lowercase hex form of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("parse hash: got %d bytes, want %d", len(raw), len(h))
	}
	copy(h[:], raw)
	return h, nil
}

// Cell is an immutable ordinary cell. Its hash and depth are computed once
// when the cell is frozen by Builder.EndCell or by the BOC decoder.
type Cell struct {
	data  []byte // bits are left-aligned, unused trailing bits are zero
	bits  int
	refs  []*Cell
	hash  Hash
	depth uint16
}

// Empty returns a cell with no data and no references.
func Empty() *Cell {
	c, _ := NewBuilder().EndCell()
	return c
}

// BitsLen returns the number of data bits stored in the cell.
func (c *Cell) BitsLen() int { return c.bits }

// RefsCount returns the number of child references.
func (c *Cell) RefsCount() int { return len(c.refs) }

// Ref returns the i-th child reference or nil when out of range.
func (c *Cell) Ref(i int) *Cell {
	if i < 0 || i >= len(c.refs) {
		return nil
	}
	return c.refs[i]
}

// Refs returns a copy of the child reference list.
func (c *Cell) Refs() []*Cell {
	out := make([]*Cell, len(c.refs))
	copy(out, c.refs)
	return out
}

// Data returns a copy of the cell's data bytes (ceil(bits/8) bytes, bits
// left-aligned, trailing bits zero).
func (c *Cell) Data() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// Hash returns the representation hash of the cell.
func (c *Cell) Hash() Hash { return c.hash }

// Depth returns the depth of the cell: zero for leaves, otherwise one more
// than the deepest child.
func (c *Cell) Depth() uint16 { return c.depth }

// IsEmpty reports whether the cell carries neither bits nor references.
func (c *Cell) IsEmpty() bool { return c.bits == 0 && len(c.refs) == 0 }

// Equal reports whether two cells have the same representation hash.
func (c *Cell) Equal(o *Cell) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.hash == o.hash
}

// BeginParse returns a read cursor positioned at the start of the cell.
func (c *Cell) BeginParse() *Slice {
	return &Slice{cell: c}
}

// ToBuilder returns a builder pre-filled with the cell's bits and
// references, for appending more content.
func (c *Cell) ToBuilder() *Builder {
	b := &Builder{
		data: make([]byte, len(c.data)),
		bits: c.bits,
		refs: make([]*Cell, len(c.refs)),
	}
	copy(b.data, c.data)
	copy(b.refs, c.refs)
	return b
}

// descriptors returns the two descriptor bytes of an ordinary level-0 cell.
func (c *Cell) descriptors() (byte, byte) {
	d1 := byte(len(c.refs))
	d2 := byte(c.bits/8 + (c.bits+7)/8)
	return d1, d2
}

// paddedData returns the data bytes with the completion tag applied when the
// bit length is not a multiple of eight.
func (c *Cell) paddedData() []byte {
	out := make([]byte, (c.bits+7)/8)
	copy(out, c.data)
	if c.bits%8 != 0 {
		out[c.bits/8] |= 1 << (7 - uint(c.bits%8))
	}
	return out
}

// finalize computes depth and representation hash.
func (c *Cell) finalize() error {
	var depth uint16
	for _, r := range c.refs {
		if r.depth+1 > depth {
			depth = r.depth + 1
		}
	}
	if depth > MaxDepth {
		return ErrDepthOverflow
	}
	c.depth = depth

	d1, d2 := c.descriptors()
	h := sha256.New()
	h.Write([]byte{d1, d2})
	h.Write(c.paddedData())
	var buf [2]byte
	for _, r := range c.refs {
		binary.BigEndian.PutUint16(buf[:], r.depth)
		h.Write(buf[:])
	}
	for _, r := range c.refs {
		h.Write(r.hash[:])
	}
	copy(c.hash[:], h.Sum(nil))
	return nil
}

// String renders the cell data in the conventional x{...} notation, with a
// trailing underscore when the bit length is not a multiple of four.
func (c *Cell) String() string {
	var sb strings.Builder
	sb.WriteString("x{")
	sb.WriteString(bitsToHex(c.paddedData(), c.bits))
	sb.WriteString("}")
	return sb.String()
}

func bitsToHex(padded []byte, bits int) string {
	s := strings.ToUpper(hex.EncodeToString(padded))
	switch {
	case bits%8 == 0:
		return s
	case bits%8 <= 4 && bits%4 != 0:
		// the completion tag sits inside the kept nibble
		return s[:len(s)-1] + "_"
	case bits%8 == 4:
		return s[:len(s)-1]
	default:
		return s + "_"
	}
}
