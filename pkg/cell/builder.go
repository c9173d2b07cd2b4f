package cell

import "fmt"

// Builder accumulates bits and references before being frozen into a Cell.
// A Builder must not be reused after EndCell.
type Builder struct {
	data []byte
	bits int
	refs []*Cell
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BitsUsed returns the number of bits stored so far.
func (b *Builder) BitsUsed() int { return b.bits }

// RefsUsed returns the number of references stored so far.
func (b *Builder) RefsUsed() int { return len(b.refs) }

// FreeBits returns the remaining bit capacity.
func (b *Builder) FreeBits() int { return MaxBits - b.bits }

func (b *Builder) putBit(bit bool) {
	if b.bits%8 == 0 {
		b.data = append(b.data, 0)
	}
	if bit {
		b.data[b.bits/8] |= 1 << (7 - uint(b.bits%8))
	}
	b.bits++
}

func (b *Builder) ensureBits(n int) error {
	if n < 0 {
		return fmt.Errorf("store %d bits: negative length", n)
	}
	if b.bits+n > MaxBits {
		return fmt.Errorf("store %d bits at %d: %w", n, b.bits, ErrBitsOverflow)
	}
	return nil
}

// StoreBit appends a single bit.
func (b *Builder) StoreBit(bit bool) error {
	if err := b.ensureBits(1); err != nil {
		return err
	}
	b.putBit(bit)
	return nil
}

// StoreUInt appends v as an n-bit big-endian unsigned integer (n <= 64).
func (b *Builder) StoreUInt(v uint64, n int) error {
	if n > 64 {
		return fmt.Errorf("store uint: width %d exceeds 64", n)
	}
	if n < 64 && v>>uint(n) != 0 {
		return fmt.Errorf("store uint: value %d does not fit in %d bits", v, n)
	}
	if err := b.ensureBits(n); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		b.putBit(v>>uint(i)&1 == 1)
	}
	return nil
}

// StoreInt appends v as an n-bit two's complement integer (n <= 64).
func (b *Builder) StoreInt(v int64, n int) error {
	if n <= 0 || n > 64 {
		return fmt.Errorf("store int: invalid width %d", n)
	}
	if n < 64 {
		lo, hi := -(int64(1) << uint(n-1)), int64(1)<<uint(n-1)
		if v < lo || v >= hi {
			return fmt.Errorf("store int: value %d does not fit in %d bits", v, n)
		}
	}
	u := uint64(v)
	if n < 64 {
		u &= (uint64(1) << uint(n)) - 1
	}
	return b.StoreUInt(u, n)
}

// StoreBits appends the first n bits of src, read most significant bit first.
func (b *Builder) StoreBits(src []byte, n int) error {
	if n > len(src)*8 {
		return fmt.Errorf("store bits: %d bits requested from %d bytes", n, len(src))
	}
	if err := b.ensureBits(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		b.putBit(src[i/8]>>(7-uint(i%8))&1 == 1)
	}
	return nil
}

// StoreBytes appends all bytes of p.
func (b *Builder) StoreBytes(p []byte) error {
	return b.StoreBits(p, len(p)*8)
}

// StoreRef appends a child reference.
func (b *Builder) StoreRef(c *Cell) error {
	if c == nil {
		return fmt.Errorf("store ref: nil cell")
	}
	if len(b.refs) >= MaxRefs {
		return ErrRefsOverflow
	}
	b.refs = append(b.refs, c)
	return nil
}

// StoreSlice appends the unread bits and references of s.
func (b *Builder) StoreSlice(s *Slice) error {
	bits := s.BitsLeft()
	if err := b.ensureBits(bits); err != nil {
		return err
	}
	if len(b.refs)+s.RefsLeft() > MaxRefs {
		return ErrRefsOverflow
	}
	for i := 0; i < bits; i++ {
		b.putBit(s.bitAt(s.bitPos + i))
	}
	b.refs = append(b.refs, s.cell.refs[s.refPos:]...)
	return nil
}

// StoreCell appends the full content (bits and references) of c.
func (b *Builder) StoreCell(c *Cell) error {
	return b.StoreSlice(c.BeginParse())
}

// EndCell freezes the builder into an immutable cell.
func (b *Builder) EndCell() (*Cell, error) {
	c := &Cell{
		data: make([]byte, len(b.data)),
		bits: b.bits,
		refs: make([]*Cell, len(b.refs)),
	}
	copy(c.data, b.data)
	copy(c.refs, b.refs)
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromBytes builds a single cell holding p as raw data.
func FromBytes(p []byte) (*Cell, error) {
	b := NewBuilder()
	if err := b.StoreBytes(p); err != nil {
		return nil, err
	}
	return b.EndCell()
}

// AppendRefs returns a new cell with the content of c followed by refs.
func AppendRefs(c *Cell, refs ...*Cell) (*Cell, error) {
	b := c.ToBuilder()
	for _, r := range refs {
		if err := b.StoreRef(r); err != nil {
			return nil, err
		}
	}
	return b.EndCell()
}
