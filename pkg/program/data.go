package program

import (
	"crypto/ed25519"
	"fmt"

	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/dict"
)

// dataKeyBits is the key width of the persistent data dictionary.
const dataKeyBits = 64

// Data builds the initial data cell: a set bit followed by a reference to a
// 64-bit keyed dictionary holding the public key (zeros without a keypair)
// at the persistent base. For C sources the dictionary starts from the
// declared persistent data.
func (p *Program) Data() (*cell.Cell, error) {
	pub := make([]byte, ed25519.PublicKeySize)
	if p.keypair != nil {
		copy(pub, p.keypair.Public().(ed25519.PublicKey))
	}

	base, seed := p.src.PersistentData()
	d := dict.New(dataKeyBits)
	if p.lang == LanguageC && seed != nil {
		var err error
		if d, err = dict.FromRoot(dataKeyBits, seed); err != nil {
			return nil, fmt.Errorf("persistent data: %w", err)
		}
	}

	value, err := cell.FromBytes(pub)
	if err != nil {
		return nil, err
	}
	d.SetInt(base, value)
	root, err := d.Root()
	if err != nil {
		return nil, fmt.Errorf("failed to pack pubkey to data dictionary: %w", err)
	}

	b := cell.NewBuilder()
	if err := b.StoreBit(true); err != nil {
		return nil, err
	}
	if err := b.StoreRef(root); err != nil {
		return nil, err
	}
	return b.EndCell()
}
