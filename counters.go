package ppm

import (
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrCountOverflow is returned when accumulating a count would exceed the
// range of Count. The statistics are left unchanged.
var ErrCountOverflow = errors.New("ppm: symbol count overflow")

// Stats holds the next-symbol frequencies observed after one context.
//
// The running total is maintained on every AddSymbol so Total is O(1) and
// always equals the sum of the stored counts.
type Stats[S Symbol] struct {
	counts map[S]Count
	total  Count
}

// NewStats returns an empty frequency table.
func NewStats[S Symbol]() *Stats[S] {
	return &Stats[S]{counts: make(map[S]Count)}
}

// canAdd reports whether adding c to the entry for s stays within Count.
// The entry never exceeds the total, so checking the total is enough.
func (st *Stats[S]) canAdd(c Count) bool {
	return c <= maxCount-st.total
}

// AddSymbol inserts s with count c, or accumulates c onto its existing
// count. Adding zero is a no-op.
func (st *Stats[S]) AddSymbol(s S, c Count) error {
	if c == 0 {
		return nil
	}
	if !st.canAdd(c) {
		return ErrCountOverflow
	}
	if st.counts == nil {
		st.counts = make(map[S]Count)
	}
	st.counts[s] += c
	st.total += c
	return nil
}

// Total returns the sum of all counts.
func (st *Stats[S]) Total() Count { return st.total }

// Count returns the count of s, zero if s was never added.
func (st *Stats[S]) Count(s S) Count { return st.counts[s] }

// Len returns the number of distinct symbols.
func (st *Stats[S]) Len() int { return len(st.counts) }

// Symbols returns the distinct symbols in ascending order.
func (st *Stats[S]) Symbols() []S {
	syms := maps.Keys(st.counts)
	slices.Sort(syms)
	return syms
}

// Range returns the cumulative interval [lo, hi) of s when symbols are laid
// out in ascending order, each taking its count. ok is false if s is absent.
func (st *Stats[S]) Range(s S) (lo, hi Count, ok bool) {
	c, ok := st.counts[s]
	if !ok {
		return 0, 0, false
	}
	for sym, n := range st.counts {
		if sym < s {
			lo += n
		}
	}
	return lo, lo + c, true
}

// Find returns the symbol whose cumulative interval contains target.
// ok is false when target >= Total().
func (st *Stats[S]) Find(target Count) (s S, lo, hi Count, ok bool) {
	if target >= st.total {
		return s, 0, 0, false
	}
	for _, sym := range st.Symbols() {
		hi = lo + st.counts[sym]
		if target < hi {
			return sym, lo, hi, true
		}
		lo = hi
	}
	return s, 0, 0, false
}

// clone returns a deep copy.
func (st *Stats[S]) clone() *Stats[S] {
	c := &Stats[S]{counts: make(map[S]Count, len(st.counts)), total: st.total}
	for s, n := range st.counts {
		c.counts[s] = n
	}
	return c
}

// View is a read-only handle on the Stats of one context. It stays valid
// and reflects later updates for as long as the owning model lives.
type View[S Symbol] struct {
	st *Stats[S]
}

// Total returns the sum of all counts in the context.
func (v View[S]) Total() Count { return v.st.Total() }

// Count returns the count of s in the context.
func (v View[S]) Count(s S) Count { return v.st.Count(s) }

// Len returns the number of distinct symbols seen in the context.
func (v View[S]) Len() int { return v.st.Len() }

// Symbols returns the distinct symbols in ascending order.
func (v View[S]) Symbols() []S { return v.st.Symbols() }

// Range is Stats.Range.
func (v View[S]) Range(s S) (lo, hi Count, ok bool) { return v.st.Range(s) }

// Find is Stats.Find.
func (v View[S]) Find(target Count) (S, Count, Count, bool) { return v.st.Find(target) }
