package ppm

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Symbol is the set of types a model can be trained on: bytes, 16-bit
// units or 32/64-bit token ids. Symbols are ordered by their numeric value.
type Symbol interface {
	constraints.Unsigned
}

// Count is the occurrence counter stored per (context, symbol) pair.
type Count uint32

const (
	maxCount = ^Count(0)

	defaultScale     Count = 256  // frequency budget of a frozen non-root leaf
	defaultRootScale Count = 1024 // frequency budget of the frozen order-0 leaf
	defaultAlphabet        = 256
)

// symbolWidth is the number of bytes a symbol occupies in a packed context key.
func symbolWidth[S Symbol]() int {
	var s S
	return int(unsafe.Sizeof(s))
}

// appendSymbol packs s little-endian into exactly width bytes.
func appendSymbol[S Symbol](dst []byte, s S, width int) []byte {
	v := uint64(s)
	for i := 0; i < width; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// loadSymbol is the inverse of appendSymbol. len(b) must be >= width.
func loadSymbol[S Symbol](b []byte, width int) S {
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return S(v)
}

// appendKey packs a context into its map key form. Two contexts produce the
// same key iff they are element-wise equal.
func appendKey[S Symbol](dst []byte, ctx []S, width int) []byte {
	for _, s := range ctx {
		dst = appendSymbol(dst, s, width)
	}
	return dst
}

// unpackKey decodes a key built by appendKey back into its symbols.
func unpackKey[S Symbol](key string, width int) []S {
	if width == 0 {
		return nil
	}
	out := make([]S, len(key)/width)
	for i := range out {
		var v uint64
		for j := 0; j < width; j++ {
			v |= uint64(key[i*width+j]) << (8 * j)
		}
		out[i] = S(v)
	}
	return out
}
