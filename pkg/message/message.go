// Package message builds the inbound messages the linker feeds to the
// simulator.
package message

import (
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// Destination is a standard internal address (addr_std without anycast).
type Destination struct {
	Workchain int8
	Account   cell.Hash
}

// ExternalIn encodes an inbound external message to dst carrying body by
// reference:
//
//	ext_in_msg_info$10 src:addr_none$00 dest:addr_std$10 import_fee:0
//	init:nothing body:^body
func ExternalIn(dst Destination, body *cell.Cell) (*cell.Cell, error) {
	if body == nil {
		body = cell.Empty()
	}
	b := cell.NewBuilder()
	if err := storeHeader(b, dst); err != nil {
		return nil, fmt.Errorf("external message: %w", err)
	}
	// no init, body in a reference
	if err := b.StoreUInt(0b01, 2); err != nil {
		return nil, fmt.Errorf("external message: %w", err)
	}
	if err := b.StoreRef(body); err != nil {
		return nil, fmt.Errorf("external message: %w", err)
	}
	return b.EndCell()
}

func storeHeader(b *cell.Builder, dst Destination) error {
	// ext_in_msg_info, addr_none source, addr_std destination without anycast
	if err := b.StoreUInt(0b10_00_10_0, 7); err != nil {
		return err
	}
	if err := b.StoreInt(int64(dst.Workchain), 8); err != nil {
		return err
	}
	if err := b.StoreBytes(dst.Account[:]); err != nil {
		return err
	}
	// import_fee as zero-length grams
	return b.StoreUInt(0, 4)
}
