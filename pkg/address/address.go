// Package address renders and parses user-friendly contract addresses:
// base64 of flag, workchain, 32-byte account id and a CRC16/XMODEM checksum.
package address

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/sigurn/crc16"
)

const (
	flagBounceable    = 0x11
	flagNonBounceable = 0x51
	flagTestnet       = 0x80

	encodedLen = 36
)

var (
	// ErrChecksum is returned when the trailing CRC does not match.
	ErrChecksum = errors.New("address checksum mismatch")
	// ErrFormat is returned for input of the wrong length or flag.
	ErrFormat = errors.New("malformed address")
)

var xmodem = crc16.MakeTable(crc16.CRC16_XMODEM)

// Address is a workchain-qualified account id with its rendering flags.
type Address struct {
	Workchain  int8
	Hash       cell.Hash
	Bounceable bool
	Testnet    bool
}

// Render returns the base64 form of the address.
func Render(wc int8, hash cell.Hash, bounceable, testnet bool) string {
	return Address{Workchain: wc, Hash: hash, Bounceable: bounceable, Testnet: testnet}.String()
}

func (a Address) String() string {
	buf := make([]byte, 0, encodedLen)
	flag := byte(flagNonBounceable)
	if a.Bounceable {
		flag = flagBounceable
	}
	if a.Testnet {
		flag |= flagTestnet
	}
	buf = append(buf, flag, byte(a.Workchain))
	buf = append(buf, a.Hash[:]...)
	buf = binary.BigEndian.AppendUint16(buf, crc16.Checksum(buf, xmodem))
	return base64.StdEncoding.EncodeToString(buf)
}

// Raw returns the "wc:hex" form.
func (a Address) Raw() string {
	return fmt.Sprintf("%d:%s", a.Workchain, a.Hash)
}

// Parse decodes a user-friendly address in standard or URL-safe base64.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	raw, err := enc.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw) != encodedLen {
		return Address{}, fmt.Errorf("%w: %d bytes, want %d", ErrFormat, len(raw), encodedLen)
	}
	want := binary.BigEndian.Uint16(raw[34:])
	if got := crc16.Checksum(raw[:34], xmodem); got != want {
		return Address{}, fmt.Errorf("%w: got %04x, want %04x", ErrChecksum, got, want)
	}

	var a Address
	flag := raw[0]
	if flag&flagTestnet != 0 {
		a.Testnet = true
		flag &^= flagTestnet
	}
	switch flag {
	case flagBounceable:
		a.Bounceable = true
	case flagNonBounceable:
	default:
		return Address{}, fmt.Errorf("%w: unknown flag 0x%02x", ErrFormat, raw[0])
	}
	a.Workchain = int8(raw[1])
	copy(a.Hash[:], raw[2:34])
	return a, nil
}
