package cell

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/klauspost/crc32"
)

const (
	bocMagicGeneric  uint32 = 0xb5ee9c72
	bocMagicIdx      uint32 = 0x68ff65f3
	bocMagicIdxCRC32 uint32 = 0xacc3a728
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// BOCOptions selects optional parts of the serialized container.
type BOCOptions struct {
	// Index writes the per-cell end offset table.
	Index bool
	// CRC32C appends a CRC32-C checksum of all preceding bytes.
	CRC32C bool
}

// bocHeader is the fixed part of a generic bag-of-cells container.
//
// Bytes:
//   - 0..3: magic b5ee9c72
//   - 4:    has_idx:1 has_crc32c:1 has_cache_bits:1 flags:2 ref_size:3
//   - 5:    off_bytes
//   - then cells, roots, absent (ref_size bytes each), tot_cells_size (off_bytes)
type bocHeader struct {
	hasIndex     bool
	hasCRC       bool
	hasCacheBits bool
	refSize      int
	offBytes     int
	cells        int
	roots        int
	absent       int
	totCellsSize uint64
}

func (h bocHeader) marshal(buf *bytes.Buffer) {
	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], bocMagicGeneric)
	buf.Write(magic[:])

	flags := byte(h.refSize)
	if h.hasIndex {
		flags |= 0x80
	}
	if h.hasCRC {
		flags |= 0x40
	}
	if h.hasCacheBits {
		flags |= 0x20
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(h.offBytes))
	writeUintN(buf, uint64(h.cells), h.refSize)
	writeUintN(buf, uint64(h.roots), h.refSize)
	writeUintN(buf, uint64(h.absent), h.refSize)
	writeUintN(buf, h.totCellsSize, h.offBytes)
}

func writeUintN(buf *bytes.Buffer, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

func bytesToFit(v uint64) int {
	n := (bits.Len64(v) + 7) / 8
	if n == 0 {
		n = 1
	}
	return n
}

// topoOrder returns every distinct cell reachable from root exactly once,
// root first and every parent before its children.
func topoOrder(root *Cell) []*Cell {
	visited := make(map[Hash]struct{})
	var post []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		if _, ok := visited[c.hash]; ok {
			return
		}
		visited[c.hash] = struct{}{}
		for _, r := range c.refs {
			visit(r)
		}
		post = append(post, c)
	}
	visit(root)

	order := make([]*Cell, len(post))
	for i, c := range post {
		order[len(post)-1-i] = c
	}
	return order
}

// SerializeBOC encodes the tree rooted at root into a single-root bag of
// cells. Structurally identical subtrees are written once.
func SerializeBOC(root *Cell, opts BOCOptions) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("boc encode: nil root")
	}
	order := topoOrder(root)
	index := make(map[Hash]int, len(order))
	for i, c := range order {
		index[c.hash] = i
	}

	refSize := bytesToFit(uint64(len(order)))
	var totCellsSize uint64
	for _, c := range order {
		totCellsSize += uint64(2 + (c.bits+7)/8 + len(c.refs)*refSize)
	}
	offBytes := bytesToFit(totCellsSize)

	hdr := bocHeader{
		hasIndex:     opts.Index,
		hasCRC:       opts.CRC32C,
		refSize:      refSize,
		offBytes:     offBytes,
		cells:        len(order),
		roots:        1,
		totCellsSize: totCellsSize,
	}

	var buf bytes.Buffer
	hdr.marshal(&buf)
	writeUintN(&buf, 0, refSize) // root index

	if opts.Index {
		var off uint64
		for _, c := range order {
			off += uint64(2 + (c.bits+7)/8 + len(c.refs)*refSize)
			writeUintN(&buf, off, offBytes)
		}
	}

	for i, c := range order {
		d1, d2 := c.descriptors()
		buf.WriteByte(d1)
		buf.WriteByte(d2)
		buf.Write(c.paddedData())
		for _, r := range c.refs {
			ri := index[r.hash]
			if ri <= i {
				return nil, fmt.Errorf("boc encode: cell %d references earlier cell %d", i, ri)
			}
			writeUintN(&buf, uint64(ri), refSize)
		}
	}

	if opts.CRC32C {
		var sum [4]byte
		binary.LittleEndian.PutUint32(sum[:], crc32.Checksum(buf.Bytes(), castagnoli))
		buf.Write(sum[:])
	}
	return buf.Bytes(), nil
}

// WriteBOC serializes root and writes the container to w.
func WriteBOC(w io.Writer, root *Cell, opts BOCOptions) error {
	data, err := SerializeBOC(root, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("boc write: %w", err)
	}
	return nil
}

type bocReader struct {
	data []byte
	pos  int
}

func (r *bocReader) uintN(n int) (uint64, error) {
	if n <= 0 || n > 8 {
		return 0, fmt.Errorf("%w: field width %d", ErrInvalidBOC, n)
	}
	if r.pos+n > len(r.data) {
		return 0, fmt.Errorf("%w: unexpected end of data at offset %d", ErrInvalidBOC, r.pos)
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(r.data[r.pos+i])
	}
	r.pos += n
	return v, nil
}

func (r *bocReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: unexpected end of data at offset %d", ErrInvalidBOC, r.pos)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func parseBOCHeader(r *bocReader) (bocHeader, []int, error) {
	var hdr bocHeader
	magic, err := r.uintN(4)
	if err != nil {
		return hdr, nil, err
	}
	b, err := r.uintN(1)
	if err != nil {
		return hdr, nil, err
	}
	switch uint32(magic) {
	case bocMagicGeneric:
		hdr.hasIndex = b&0x80 != 0
		hdr.hasCRC = b&0x40 != 0
		hdr.hasCacheBits = b&0x20 != 0
		hdr.refSize = int(b & 0x07)
	case bocMagicIdx, bocMagicIdxCRC32:
		hdr.hasIndex = true
		hdr.hasCRC = uint32(magic) == bocMagicIdxCRC32
		hdr.refSize = int(b)
	default:
		return hdr, nil, fmt.Errorf("%w: unknown magic %08x", ErrInvalidBOC, magic)
	}
	if hdr.refSize < 1 || hdr.refSize > 4 {
		return hdr, nil, fmt.Errorf("%w: ref size %d", ErrInvalidBOC, hdr.refSize)
	}
	off, err := r.uintN(1)
	if err != nil {
		return hdr, nil, err
	}
	hdr.offBytes = int(off)
	if hdr.offBytes < 1 || hdr.offBytes > 8 {
		return hdr, nil, fmt.Errorf("%w: offset size %d", ErrInvalidBOC, hdr.offBytes)
	}

	fields := make([]uint64, 3)
	for i := range fields {
		if fields[i], err = r.uintN(hdr.refSize); err != nil {
			return hdr, nil, err
		}
	}
	hdr.cells, hdr.roots, hdr.absent = int(fields[0]), int(fields[1]), int(fields[2])
	if hdr.totCellsSize, err = r.uintN(hdr.offBytes); err != nil {
		return hdr, nil, err
	}
	if hdr.roots < 1 || hdr.roots > hdr.cells {
		return hdr, nil, fmt.Errorf("%w: %d roots for %d cells", ErrInvalidBOC, hdr.roots, hdr.cells)
	}
	if hdr.absent != 0 {
		return hdr, nil, fmt.Errorf("%w: absent cells are not supported", ErrInvalidBOC)
	}

	roots := make([]int, hdr.roots)
	if uint32(magic) == bocMagicGeneric {
		for i := range roots {
			v, err := r.uintN(hdr.refSize)
			if err != nil {
				return hdr, nil, err
			}
			if int(v) >= hdr.cells {
				return hdr, nil, fmt.Errorf("%w: root index %d out of range", ErrInvalidBOC, v)
			}
			roots[i] = int(v)
		}
	} else if hdr.roots != 1 {
		return hdr, nil, fmt.Errorf("%w: indexed format with %d roots", ErrInvalidBOC, hdr.roots)
	}
	return hdr, roots, nil
}

type rawCell struct {
	bits int
	data []byte
	refs []int
}

// DeserializeBOC decodes a bag of cells and returns its root cells.
func DeserializeBOC(data []byte) ([]*Cell, error) {
	r := &bocReader{data: data}
	hdr, roots, err := parseBOCHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.cells*2 > len(data) {
		return nil, fmt.Errorf("%w: %d cells cannot fit in %d bytes", ErrInvalidBOC, hdr.cells, len(data))
	}
	if hdr.hasIndex {
		if _, err := r.bytes(hdr.cells * hdr.offBytes); err != nil {
			return nil, err
		}
	}

	cellsStart := r.pos
	raws := make([]rawCell, hdr.cells)
	for i := range raws {
		d, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		d1, d2 := d[0], d[1]
		if d1&0x08 != 0 {
			return nil, fmt.Errorf("%w: cell %d is exotic", ErrInvalidBOC, i)
		}
		if d1>>5 != 0 {
			return nil, fmt.Errorf("%w: cell %d has non-zero level", ErrInvalidBOC, i)
		}
		if d1&0x10 != 0 {
			return nil, fmt.Errorf("%w: cell %d stores hashes", ErrInvalidBOC, i)
		}
		refsCount := int(d1 & 0x07)
		if refsCount > MaxRefs {
			return nil, fmt.Errorf("%w: cell %d has %d refs", ErrInvalidBOC, i, refsCount)
		}
		dataLen := (int(d2) + 1) / 2
		payload, err := r.bytes(dataLen)
		if err != nil {
			return nil, err
		}
		bitLen := dataLen * 8
		if d2%2 == 1 {
			last := payload[dataLen-1]
			if last == 0 {
				return nil, fmt.Errorf("%w: cell %d has no completion tag", ErrInvalidBOC, i)
			}
			bitLen -= bits.TrailingZeros8(last) + 1
		}
		if bitLen > MaxBits {
			return nil, fmt.Errorf("%w: cell %d has %d bits", ErrInvalidBOC, i, bitLen)
		}
		rc := rawCell{bits: bitLen, data: make([]byte, dataLen), refs: make([]int, refsCount)}
		copy(rc.data, payload)
		if bitLen%8 != 0 {
			rc.data[dataLen-1] &^= 1 << (7 - uint(bitLen%8))
		}
		for j := range rc.refs {
			v, err := r.uintN(hdr.refSize)
			if err != nil {
				return nil, err
			}
			if int(v) <= i || int(v) >= hdr.cells {
				return nil, fmt.Errorf("%w: cell %d references cell %d", ErrInvalidBOC, i, v)
			}
			rc.refs[j] = int(v)
		}
		raws[i] = rc
	}
	if uint64(r.pos-cellsStart) != hdr.totCellsSize {
		return nil, fmt.Errorf("%w: cell data is %d bytes, header says %d", ErrInvalidBOC, r.pos-cellsStart, hdr.totCellsSize)
	}

	if hdr.hasCRC {
		body := r.pos
		sum, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		want := binary.LittleEndian.Uint32(sum)
		if got := crc32.Checksum(data[:body], castagnoli); got != want {
			return nil, fmt.Errorf("%w: crc32c mismatch: got %08x, want %08x", ErrInvalidBOC, got, want)
		}
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidBOC, len(data)-r.pos)
	}

	cells := make([]*Cell, hdr.cells)
	for i := hdr.cells - 1; i >= 0; i-- {
		rc := raws[i]
		c := &Cell{data: rc.data, bits: rc.bits, refs: make([]*Cell, len(rc.refs))}
		for j, ri := range rc.refs {
			c.refs[j] = cells[ri]
		}
		if err := c.finalize(); err != nil {
			return nil, fmt.Errorf("%w: cell %d: %v", ErrInvalidBOC, i, err)
		}
		cells[i] = c
	}

	out := make([]*Cell, len(roots))
	for i, ri := range roots {
		out[i] = cells[ri]
	}
	return out, nil
}

// ReadBOCRoot decodes a bag of cells and returns its first root.
func ReadBOCRoot(data []byte) (*Cell, error) {
	roots, err := DeserializeBOC(data)
	if err != nil {
		return nil, err
	}
	return roots[0], nil
}
