package debugmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/odvcencio/tvmlink/pkg/cell"
	"github.com/odvcencio/tvmlink/pkg/fileutil"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("debugmap: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

func (m *Map) byHex() map[string]Entry {
	out := make(map[string]Entry, len(m.entries))
	for h, e := range m.entries {
		out[h.String()] = e
	}
	return out
}

func fromHex(raw map[string]Entry) (*Map, error) {
	m := New()
	for k, e := range raw {
		h, err := cell.ParseHash(k)
		if err != nil {
			return nil, fmt.Errorf("debugmap: key %q: %w", k, err)
		}
		m.entries[h] = e
	}
	return m, nil
}

// MarshalJSON encodes the map as an object keyed by hex hash.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.byHex())
}

// UnmarshalJSON decodes an object keyed by hex hash.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("debugmap: unmarshal json: %w", err)
	}
	decoded, err := fromHex(raw)
	if err != nil {
		return err
	}
	m.entries = decoded.entries
	return nil
}

// MarshalCBOR encodes the map with canonical CBOR, so equal maps produce
// equal bytes.
func (m *Map) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(m.byHex())
}

// UnmarshalCBOR decodes a CBOR map keyed by hex hash.
func (m *Map) UnmarshalCBOR(data []byte) error {
	var raw map[string]Entry
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("debugmap: unmarshal cbor: %w", err)
	}
	decoded, err := fromHex(raw)
	if err != nil {
		return err
	}
	m.entries = decoded.entries
	return nil
}

// encoding picks the format from the file name: ".cbor" (optionally
// followed by ".zst") selects CBOR, anything else JSON.
func encoding(path string) (useCBOR, compressed bool) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".zst") {
		compressed = true
		name = strings.TrimSuffix(name, ".zst")
	}
	return strings.HasSuffix(name, ".cbor"), compressed
}

// WriteFile exports m to path. A ".zst" suffix compresses the encoded
// payload with zstd.
func (m *Map) WriteFile(path string) error {
	useCBOR, compressed := encoding(path)

	var data []byte
	var err error
	if useCBOR {
		data, err = m.MarshalCBOR()
	} else {
		data, err = json.MarshalIndent(m.byHex(), "", "  ")
	}
	if err != nil {
		return fmt.Errorf("debugmap: encode: %w", err)
	}
	if compressed {
		if data, err = compressZstd(data); err != nil {
			return fmt.Errorf("debugmap: compress: %w", err)
		}
	}
	return fileutil.WriteAtomic(path, data, 0o644)
}

// ReadFile loads a map previously written by WriteFile.
func ReadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("debugmap: read: %w", err)
	}
	useCBOR, compressed := encoding(path)
	if compressed {
		if data, err = decompressZstd(data); err != nil {
			return nil, fmt.Errorf("debugmap: decompress: %w", err)
		}
	}
	m := New()
	if useCBOR {
		err = m.UnmarshalCBOR(data)
	} else {
		err = m.UnmarshalJSON(data)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
