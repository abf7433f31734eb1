package ppm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dchest/siphash"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// tableVersion is the serialized Table format version (a date).
const tableVersion uint64 = 20261019

const (
	headerSize    = 24      // version word, checksum, compressed length
	maxCompressed = 1 << 30 // refuse larger bodies outright
	maxDecoded    = 1 << 32

	sipK0 = 0x6c7967656e657261
	sipK1 = 0x7465646279746573
)

var (
	// ErrBadVersion indicates the serialized table version is not supported.
	ErrBadVersion = errors.New("ppm: unsupported table version")
	// ErrChecksum indicates the serialized table body does not match its checksum.
	ErrChecksum = errors.New("ppm: table checksum mismatch")
	// ErrCorrupt indicates a malformed serialized table or coder input.
	ErrCorrupt = errors.New("ppm: corrupt table")
)

var (
	enc *zstd.Encoder
	dec *zstd.Decoder
)

func init() {
	enc, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	dec, _ = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecoded))
}

// appendBody serializes the orders. Leaves are written in key order so the
// output is deterministic.
func (t *Table[S]) appendBody(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(t.orders)))
	for i := range t.orders {
		o := &t.orders[i]
		dst = binary.AppendUvarint(dst, uint64(o.size))
		dst = binary.AppendUvarint(dst, uint64(o.scale))
		dst = binary.AppendUvarint(dst, uint64(len(o.leaves)))
		keys := maps.Keys(o.leaves)
		slices.Sort(keys)
		for _, k := range keys {
			l := o.leaves[k]
			dst = append(dst, k...)
			dst = binary.AppendUvarint(dst, uint64(l.exit))
			dst = binary.AppendUvarint(dst, uint64(len(l.syms)))
			for j, s := range l.syms {
				dst = appendSymbol(dst, s, t.width)
				dst = binary.AppendUvarint(dst, uint64(l.cum[j+1]-l.cum[j]))
			}
		}
	}
	return dst
}

// WriteTo serializes the Table to w.
// Layout:
// - 8 bytes version word: (version<<32)|(symbolWidth<<8)|1
// - 8 bytes siphash of the uncompressed body
// - 8 bytes length of the compressed body
// - zstd-compressed body (see appendBody)
func (t *Table[S]) WriteTo(w io.Writer) (int64, error) {
	body := t.appendBody(nil)
	comp := enc.EncodeAll(body, nil)

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[0:], (tableVersion<<32)|(uint64(t.width)<<8)|1)
	binary.LittleEndian.PutUint64(hdr[8:], siphash.Hash(sipK0, sipK1, body))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(len(comp)))

	var n int64
	if nn, err := w.Write(hdr[:]); err != nil {
		return n, err
	} else {
		n += int64(nn)
	}
	nn, err := w.Write(comp)
	n += int64(nn)
	return n, err
}

// ReadFrom deserializes a Table written by WriteTo. The symbol width stored
// in the header must match S.
func (t *Table[S]) ReadFrom(r io.Reader) (int64, error) {
	var (
		n   int64
		hdr [headerSize]byte
	)
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return n, err
	}
	n += headerSize
	ver := binary.LittleEndian.Uint64(hdr[0:])
	if ver>>32 != tableVersion {
		return n, ErrBadVersion
	}
	width := int((ver >> 8) & 0xff)
	if width != symbolWidth[S]() {
		return n, fmt.Errorf("%w: symbol width %d, want %d", ErrCorrupt, width, symbolWidth[S]())
	}
	sum := binary.LittleEndian.Uint64(hdr[8:])
	size := binary.LittleEndian.Uint64(hdr[16:])
	if size > maxCompressed {
		return n, fmt.Errorf("%w: body of %d bytes", ErrCorrupt, size)
	}
	comp := make([]byte, size)
	if _, err := io.ReadFull(r, comp); err != nil {
		return n, err
	}
	n += int64(size)
	body, err := dec.DecodeAll(comp, nil)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if siphash.Hash(sipK0, sipK1, body) != sum {
		return n, ErrChecksum
	}
	parsed, err := parseBody[S](body, width)
	if err != nil {
		return n, err
	}
	*t = *parsed
	return n, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Table[S]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *Table[S]) UnmarshalBinary(data []byte) error {
	_, err := t.ReadFrom(bytes.NewReader(data))
	return err
}

// bodyReader walks a serialized body, latching the first error.
type bodyReader struct {
	buf []byte
	err error
}

func (b *bodyReader) uvarint() uint64 {
	if b.err != nil {
		return 0
	}
	v, n := binary.Uvarint(b.buf)
	if n <= 0 {
		b.err = fmt.Errorf("%w: bad varint", ErrCorrupt)
		return 0
	}
	b.buf = b.buf[n:]
	return v
}

func (b *bodyReader) count() Count {
	v := b.uvarint()
	if v > uint64(maxCount) {
		b.fail("count %d out of range", v)
		return 0
	}
	return Count(v)
}

func (b *bodyReader) bytes(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > len(b.buf) {
		b.fail("truncated body")
		return nil
	}
	out := b.buf[:n]
	b.buf = b.buf[n:]
	return out
}

func (b *bodyReader) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
	}
}

func parseBody[S Symbol](body []byte, width int) (*Table[S], error) {
	b := &bodyReader{buf: body}
	norders := b.uvarint()
	if b.err == nil && (norders == 0 || norders > uint64(len(body))) {
		b.fail("%d orders", norders)
	}
	if b.err != nil {
		return nil, b.err
	}
	t := &Table[S]{width: width, orders: make([]tableOrder[S], norders)}
	cfgs := make([]OrderConfig, norders)
	for i := range t.orders {
		size := b.uvarint()
		scale := b.count()
		nleaves := b.uvarint()
		if b.err != nil {
			return nil, b.err
		}
		if size > uint64(len(body)) || nleaves > uint64(len(body)) {
			return nil, fmt.Errorf("%w: order %d header", ErrCorrupt, i)
		}
		o := tableOrder[S]{size: int(size), scale: scale, leaves: make(map[string]*Leaf[S], nleaves)}
		cfgs[i] = OrderConfig{Size: o.size}
		for n := uint64(0); n < nleaves; n++ {
			key := string(b.bytes(o.size * width))
			exit := b.count()
			nsyms := b.uvarint()
			if b.err == nil && nsyms > uint64(len(b.buf)) {
				b.fail("leaf of %d symbols", nsyms)
			}
			if b.err != nil {
				return nil, b.err
			}
			syms := make([]S, nsyms)
			freqs := make([]Count, nsyms)
			var sum uint64
			for j := range syms {
				raw := b.bytes(width)
				freqs[j] = b.count()
				if b.err != nil {
					return nil, b.err
				}
				syms[j] = loadSymbol[S](raw, width)
				if freqs[j] == 0 || (j > 0 && syms[j] <= syms[j-1]) {
					return nil, fmt.Errorf("%w: malformed leaf in order %d", ErrCorrupt, o.size)
				}
				sum += uint64(freqs[j])
			}
			if sum+uint64(exit) != uint64(scale) {
				return nil, fmt.Errorf("%w: leaf in order %d does not sum to scale %d", ErrCorrupt, o.size, scale)
			}
			if _, dup := o.leaves[key]; dup {
				return nil, fmt.Errorf("%w: duplicate leaf in order %d", ErrCorrupt, o.size)
			}
			o.leaves[key] = newLeaf(syms, freqs, scale)
		}
		t.orders[i] = o
	}
	if len(b.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(b.buf))
	}
	if err := validateOrders(cfgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if t.orders[0].size != 0 || t.orders[0].leaves[""] == nil {
		return nil, fmt.Errorf("%w: missing root leaf", ErrCorrupt)
	}
	return t, nil
}
