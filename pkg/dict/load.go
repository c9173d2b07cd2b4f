package dict

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// FromRoot decodes a trie rooted at root into a Dictionary. A nil root yields
// an empty dictionary.
func FromRoot(keyBits int, root *cell.Cell) (*Dictionary, error) {
	d := New(keyBits)
	if root == nil {
		return d, nil
	}
	if err := d.load(root, 0, keyBits); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadHashmapE reads a HashmapE (presence bit plus optional root reference)
// from s.
func LoadHashmapE(s *cell.Slice, keyBits int) (*Dictionary, error) {
	present, err := s.LoadBit()
	if err != nil {
		return nil, fmt.Errorf("dict: load presence bit: %w", err)
	}
	if !present {
		return New(keyBits), nil
	}
	root, err := s.LoadRef()
	if err != nil {
		return nil, fmt.Errorf("dict: load root: %w", err)
	}
	return FromRoot(keyBits, root)
}

func (d *Dictionary) load(c *cell.Cell, prefix uint64, n int) error {
	s := c.BeginParse()
	label, l, err := loadLabel(s, n)
	if err != nil {
		return fmt.Errorf("dict: load label: %w", err)
	}
	if l > 0 {
		prefix = prefix<<uint(l) | label
	}
	if l == n {
		v, err := s.ToCell()
		if err != nil {
			return fmt.Errorf("dict: load leaf %x: %w", prefix, err)
		}
		d.values[prefix] = v
		return nil
	}

	left, err := s.LoadRef()
	if err != nil {
		return fmt.Errorf("dict: load fork: %w", err)
	}
	right, err := s.LoadRef()
	if err != nil {
		return fmt.Errorf("dict: load fork: %w", err)
	}
	if s.BitsLeft() != 0 || s.RefsLeft() != 0 {
		return fmt.Errorf("dict: fork node carries %d extra bits and %d extra refs", s.BitsLeft(), s.RefsLeft())
	}
	if err := d.load(left, prefix<<1, n-l-1); err != nil {
		return err
	}
	return d.load(right, prefix<<1|1, n-l-1)
}
