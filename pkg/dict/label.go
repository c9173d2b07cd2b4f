package dict

import (
	"fmt"
	"math/bits"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// lenBits is the width of an explicit label length for at most max bits.
func lenBits(max int) int {
	return bits.Len(uint(max))
}

// storeLabel writes the l-bit label (right-aligned in label) for a node with
// n key bits remaining, choosing the shortest of the three encodings:
//
//	hml_short$0  len:(Unary ~l) s:(l * Bit)
//	hml_long$10  l:(#<= n) s:(l * Bit)
//	hml_same$11  v:Bit l:(#<= n)
func storeLabel(b *cell.Builder, label uint64, l, n int) error {
	if l == 0 {
		return b.StoreUInt(0, 2)
	}
	k := lenBits(n)
	if l > 1 && k < 2*l-1 {
		ones := uint64(1)<<uint(l) - 1
		if l == 64 {
			ones = ^uint64(0)
		}
		if label == 0 || label == ones {
			if err := b.StoreUInt(3, 2); err != nil {
				return err
			}
			if err := b.StoreBit(label != 0); err != nil {
				return err
			}
			return b.StoreUInt(uint64(l), k)
		}
	}
	if k < l {
		if err := b.StoreUInt(2, 2); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(l), k); err != nil {
			return err
		}
		return b.StoreUInt(label, l)
	}
	if err := b.StoreBit(false); err != nil {
		return err
	}
	for i := 0; i < l; i++ {
		if err := b.StoreBit(true); err != nil {
			return err
		}
	}
	if err := b.StoreBit(false); err != nil {
		return err
	}
	return b.StoreUInt(label, l)
}

// loadLabel reads a label for a node with n key bits remaining.
func loadLabel(s *cell.Slice, n int) (uint64, int, error) {
	first, err := s.LoadBit()
	if err != nil {
		return 0, 0, err
	}
	if !first {
		l := 0
		for {
			bit, err := s.LoadBit()
			if err != nil {
				return 0, 0, err
			}
			if !bit {
				break
			}
			l++
			if l > n {
				return 0, 0, fmt.Errorf("dict: short label longer than %d bits", n)
			}
		}
		label, err := s.LoadUInt(l)
		return label, l, err
	}

	second, err := s.LoadBit()
	if err != nil {
		return 0, 0, err
	}
	k := lenBits(n)
	if !second {
		l64, err := s.LoadUInt(k)
		if err != nil {
			return 0, 0, err
		}
		l := int(l64)
		if l > n {
			return 0, 0, fmt.Errorf("dict: long label of %d bits exceeds %d", l, n)
		}
		label, err := s.LoadUInt(l)
		return label, l, err
	}

	v, err := s.LoadBit()
	if err != nil {
		return 0, 0, err
	}
	l64, err := s.LoadUInt(k)
	if err != nil {
		return 0, 0, err
	}
	l := int(l64)
	if l > n {
		return 0, 0, fmt.Errorf("dict: same label of %d bits exceeds %d", l, n)
	}
	var label uint64
	if v {
		label = ^uint64(0)
		if l < 64 {
			label = uint64(1)<<uint(l) - 1
		}
	}
	return label, l, nil
}
