// Package state models the contract state init: the root structure holding
// code, data and library whose hash is the contract address.
package state

import (
	"errors"
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// ErrMalformedState is returned when a cell does not decode as a state init.
var ErrMalformedState = errors.New("malformed state init")

// TickTock marks a special contract invoked on tick and/or tock.
type TickTock struct {
	Tick bool
	Tock bool
}

// StateInit is
//
//	split_depth:(Maybe (## 5)) special:(Maybe TickTock)
//	code:(Maybe ^Cell) data:(Maybe ^Cell) library:(HashmapE 256 SimpleLib)
//
// A nil cell field is absent; a nil Library is the empty dictionary.
type StateInit struct {
	SplitDepth *uint8
	Special    *TickTock
	Code       *cell.Cell
	Data       *cell.Cell
	Library    *cell.Cell
}

// ToCell encodes the state init.
func (s *StateInit) ToCell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := s.store(b); err != nil {
		return nil, fmt.Errorf("state init encode: %w", err)
	}
	return b.EndCell()
}

func storeMaybeRef(b *cell.Builder, c *cell.Cell) error {
	if c == nil {
		return b.StoreBit(false)
	}
	if err := b.StoreBit(true); err != nil {
		return err
	}
	return b.StoreRef(c)
}

func (s *StateInit) store(b *cell.Builder) error {
	if s.SplitDepth == nil {
		if err := b.StoreBit(false); err != nil {
			return err
		}
	} else {
		if *s.SplitDepth > 31 {
			return fmt.Errorf("split depth %d exceeds 31", *s.SplitDepth)
		}
		if err := b.StoreBit(true); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(*s.SplitDepth), 5); err != nil {
			return err
		}
	}

	if s.Special == nil {
		if err := b.StoreBit(false); err != nil {
			return err
		}
	} else {
		for _, bit := range []bool{true, s.Special.Tick, s.Special.Tock} {
			if err := b.StoreBit(bit); err != nil {
				return err
			}
		}
	}

	if err := storeMaybeRef(b, s.Code); err != nil {
		return err
	}
	if err := storeMaybeRef(b, s.Data); err != nil {
		return err
	}
	return storeMaybeRef(b, s.Library)
}

// Hash returns the representation hash of the encoded state init, which is
// the contract's account id.
func (s *StateInit) Hash() (cell.Hash, error) {
	c, err := s.ToCell()
	if err != nil {
		return cell.Hash{}, err
	}
	return c.Hash(), nil
}

func loadMaybeRef(sl *cell.Slice) (*cell.Cell, error) {
	present, err := sl.LoadBit()
	if err != nil || !present {
		return nil, err
	}
	return sl.LoadRef()
}

// FromCell decodes a state init. Every bit and reference of c must be
// consumed.
func FromCell(c *cell.Cell) (*StateInit, error) {
	si, sl, err := decode(c)
	if err != nil {
		return nil, err
	}
	if sl.BitsLeft() != 0 || sl.RefsLeft() != 0 {
		return nil, fmt.Errorf("%w: %d bits and %d refs left over", ErrMalformedState, sl.BitsLeft(), sl.RefsLeft())
	}
	return si, nil
}

func decode(c *cell.Cell) (*StateInit, *cell.Slice, error) {
	sl := c.BeginParse()
	si := &StateInit{}
	fail := func(err error) (*StateInit, *cell.Slice, error) {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	hasSplit, err := sl.LoadBit()
	if err != nil {
		return fail(err)
	}
	if hasSplit {
		d, err := sl.LoadUInt(5)
		if err != nil {
			return fail(err)
		}
		depth := uint8(d)
		si.SplitDepth = &depth
	}

	hasSpecial, err := sl.LoadBit()
	if err != nil {
		return fail(err)
	}
	if hasSpecial {
		tick, err := sl.LoadBit()
		if err != nil {
			return fail(err)
		}
		tock, err := sl.LoadBit()
		if err != nil {
			return fail(err)
		}
		si.Special = &TickTock{Tick: tick, Tock: tock}
	}

	if si.Code, err = loadMaybeRef(sl); err != nil {
		return fail(err)
	}
	if si.Data, err = loadMaybeRef(sl); err != nil {
		return fail(err)
	}
	if si.Library, err = loadMaybeRef(sl); err != nil {
		return fail(err)
	}
	return si, sl, nil
}
