package ppm

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ContextLengthError is the panic value raised when a context passed to an
// Order does not have exactly the order's size. It is a caller bug, never a
// data error, so the context is neither truncated nor padded.
type ContextLengthError struct {
	Size int // the order's context size
	Got  int // length of the context passed in
}

func (e *ContextLengthError) Error() string {
	return fmt.Sprintf("ppm: context length %d does not match order size %d", e.Got, e.Size)
}

// Order maps every observed context of a fixed length to the statistics of
// the symbols that followed it. Entries are only ever inserted.
type Order[S Symbol] struct {
	size     int
	width    int
	contexts map[string]*Stats[S]
	scratch  []byte // key buffer for lookups
}

// NewOrder returns an empty model for contexts of the given size.
// It panics if size is negative.
func NewOrder[S Symbol](size int) *Order[S] {
	if size < 0 {
		panic(fmt.Sprintf("ppm: negative order size %d", size))
	}
	w := symbolWidth[S]()
	return &Order[S]{
		size:     size,
		width:    w,
		contexts: make(map[string]*Stats[S]),
		scratch:  make([]byte, 0, size*w),
	}
}

// Size returns the context length of the model.
func (o *Order[S]) Size() int { return o.size }

func (o *Order[S]) key(ctx []S) []byte {
	if len(ctx) != o.size {
		panic(&ContextLengthError{Size: o.size, Got: len(ctx)})
	}
	o.scratch = appendKey(o.scratch[:0], ctx, o.width)
	return o.scratch
}

// stats returns the entry for ctx without creating it.
func (o *Order[S]) stats(ctx []S) *Stats[S] {
	return o.contexts[string(o.key(ctx))]
}

// AddSymbol records that s followed ctx c times, creating the context entry
// on first use.
func (o *Order[S]) AddSymbol(ctx []S, s S, c Count) error {
	k := o.key(ctx)
	st, ok := o.contexts[string(k)]
	if !ok {
		if c == 0 {
			return nil
		}
		st = NewStats[S]()
		if err := st.AddSymbol(s, c); err != nil {
			return err
		}
		o.contexts[string(k)] = st
		return nil
	}
	return st.AddSymbol(s, c)
}

// Lookup returns the statistics of ctx. ok is false if ctx was never
// observed, which is what makes a predictor escape to the next lower order.
func (o *Order[S]) Lookup(ctx []S) (View[S], bool) {
	st := o.stats(ctx)
	if st == nil {
		return View[S]{}, false
	}
	return View[S]{st: st}, true
}

// Len returns the number of distinct contexts.
func (o *Order[S]) Len() int { return len(o.contexts) }

// Entries returns the number of (context, symbol) pairs.
func (o *Order[S]) Entries() int {
	n := 0
	for _, st := range o.contexts {
		n += st.Len()
	}
	return n
}

// Total returns the sum of all counts over all contexts.
func (o *Order[S]) Total() uint64 {
	var n uint64
	for _, st := range o.contexts {
		n += uint64(st.Total())
	}
	return n
}

// sortedKeys returns the context keys in ascending byte order.
func (o *Order[S]) sortedKeys() []string {
	keys := maps.Keys(o.contexts)
	slices.Sort(keys)
	return keys
}

// Contexts returns every observed context, ordered by their packed keys.
func (o *Order[S]) Contexts() [][]S {
	keys := o.sortedKeys()
	out := make([][]S, len(keys))
	for i, k := range keys {
		out[i] = unpackKey[S](k, o.width)
	}
	return out
}

func (o *Order[S]) clone() *Order[S] {
	c := NewOrder[S](o.size)
	for k, st := range o.contexts {
		c.contexts[k] = st.clone()
	}
	return c
}
