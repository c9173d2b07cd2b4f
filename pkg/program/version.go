package program

import (
	"errors"
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
)

// ErrNoVersion is returned by CodeVersion when the code carries no version.
var ErrNoVersion = errors.New("not found (cell underflow)")

// saveMyCodePrefix is PUSHREFCONT; JMPXDATA, the whole body of the
// save-my-code wrapper.
const (
	saveMyCodePrefix     = 0x8ADB35
	saveMyCodePrefixBits = 24
)

// CodeVersion returns the version string linked into code, looking through
// the save-my-code wrapper when present.
func CodeVersion(code *cell.Cell) (string, error) {
	entry := code
	if isSaveMyCode(code) {
		entry = code.Ref(1)
	}
	if entry.RefsCount() == 0 || entry.Ref(0).RefsCount() < 2 {
		return "", ErrNoVersion
	}
	raw := entry.Ref(0).Ref(1)
	if raw.BitsLen()%8 != 0 {
		return "", fmt.Errorf("version is %d bits, not a byte string", raw.BitsLen())
	}
	return string(raw.Data()), nil
}

func isSaveMyCode(code *cell.Cell) bool {
	if code.BitsLen() != saveMyCodePrefixBits || code.RefsCount() != 2 {
		return false
	}
	v, err := code.BeginParse().LoadUInt(saveMyCodePrefixBits)
	return err == nil && v == saveMyCodePrefix
}
