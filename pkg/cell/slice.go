package cell

import "fmt"

// Slice is a read cursor over a cell's bits and references.
type Slice struct {
	cell   *Cell
	bitPos int
	refPos int
}

// BitsLeft returns the number of unread bits.
func (s *Slice) BitsLeft() int { return s.cell.bits - s.bitPos }

// RefsLeft returns the number of unread references.
func (s *Slice) RefsLeft() int { return len(s.cell.refs) - s.refPos }

// Copy returns an independent cursor at the same position.
func (s *Slice) Copy() *Slice {
	cp := *s
	return &cp
}

func (s *Slice) bitAt(i int) bool {
	return s.cell.data[i/8]>>(7-uint(i%8))&1 == 1
}

func (s *Slice) need(n int) error {
	if n < 0 || n > s.BitsLeft() {
		return fmt.Errorf("load %d bits with %d left: %w", n, s.BitsLeft(), ErrUnderflow)
	}
	return nil
}

// LoadBit reads one bit.
func (s *Slice) LoadBit() (bool, error) {
	if err := s.need(1); err != nil {
		return false, err
	}
	v := s.bitAt(s.bitPos)
	s.bitPos++
	return v, nil
}

// PreloadUInt reads an n-bit unsigned integer without advancing.
func (s *Slice) PreloadUInt(n int) (uint64, error) {
	if n > 64 {
		return 0, fmt.Errorf("load uint: width %d exceeds 64", n)
	}
	if err := s.need(n); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v <<= 1
		if s.bitAt(s.bitPos + i) {
			v |= 1
		}
	}
	return v, nil
}

// LoadUInt reads an n-bit big-endian unsigned integer (n <= 64).
func (s *Slice) LoadUInt(n int) (uint64, error) {
	v, err := s.PreloadUInt(n)
	if err != nil {
		return 0, err
	}
	s.bitPos += n
	return v, nil
}

// LoadInt reads an n-bit two's complement integer (0 < n <= 64).
func (s *Slice) LoadInt(n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("load int: invalid width %d", n)
	}
	u, err := s.LoadUInt(n)
	if err != nil {
		return 0, err
	}
	if n < 64 && u&(uint64(1)<<uint(n-1)) != 0 {
		u |= ^uint64(0) << uint(n)
	}
	return int64(u), nil
}

// LoadBits reads n bits into a left-aligned byte slice.
func (s *Slice) LoadBits(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if s.bitAt(s.bitPos + i) {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	s.bitPos += n
	return out, nil
}

// LoadRef reads the next child reference.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RefsLeft() == 0 {
		return nil, fmt.Errorf("load ref: %w", ErrUnderflow)
	}
	r := s.cell.refs[s.refPos]
	s.refPos++
	return r, nil
}

// ToCell freezes the unread remainder of the slice into a new cell.
func (s *Slice) ToCell() (*Cell, error) {
	b := NewBuilder()
	if err := b.StoreSlice(s); err != nil {
		return nil, err
	}
	return b.EndCell()
}
