package ppm

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrConfig is matched (via errors.Is) by every *ConfigError.
var ErrConfig = errors.New("ppm: invalid order configuration")

// ConfigError reports why a list of order configurations was rejected.
type ConfigError struct {
	Index  int // position of the offending configuration, -1 for the list as a whole
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrConfig, e.Reason)
	}
	return fmt.Sprintf("%s: order %d: %s", ErrConfig, e.Index, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// OrderConfig configures one order of a Hierarchy.
type OrderConfig struct {
	// Size is the context length; 0 is the context-free order.
	Size int
}

// Hierarchy is the ordered set of per-order models of one session plus the
// rolling window of recent symbols that every order derives its context from.
//
// A Hierarchy is not safe for concurrent use; independent sessions must
// each own their own Hierarchy.
type Hierarchy[S Symbol] struct {
	orders []*Order[S] // ascending by Size
	win    window[S]
}

// validateOrders checks that sizes are non-negative and strictly ascending.
func validateOrders(cfgs []OrderConfig) error {
	if len(cfgs) == 0 {
		return &ConfigError{Index: -1, Reason: "no orders"}
	}
	for i, c := range cfgs {
		if c.Size < 0 {
			return &ConfigError{Index: i, Reason: fmt.Sprintf("negative context size %d", c.Size)}
		}
		if i > 0 && c.Size <= cfgs[i-1].Size {
			return &ConfigError{
				Index:  i,
				Reason: fmt.Sprintf("context size %d not above previous size %d", c.Size, cfgs[i-1].Size),
			}
		}
	}
	return nil
}

// NewHierarchy builds an empty hierarchy. The configurations must be
// strictly ascending by Size; the last one sets MaxContextSize.
func NewHierarchy[S Symbol](cfgs ...OrderConfig) (*Hierarchy[S], error) {
	if err := validateOrders(cfgs); err != nil {
		return nil, err
	}
	h := &Hierarchy[S]{orders: make([]*Order[S], len(cfgs))}
	for i, c := range cfgs {
		h.orders[i] = NewOrder[S](c.Size)
	}
	h.win = newWindow[S](cfgs[len(cfgs)-1].Size)
	return h, nil
}

// Len returns the number of orders.
func (h *Hierarchy[S]) Len() int { return len(h.orders) }

// MaxContextSize is the size of the highest order and of the rolling window.
func (h *Hierarchy[S]) MaxContextSize() int { return h.orders[len(h.orders)-1].size }

// Sizes returns the context sizes of all orders in ascending order.
func (h *Hierarchy[S]) Sizes() []int {
	out := make([]int, len(h.orders))
	for i, o := range h.orders {
		out[i] = o.size
	}
	return out
}

// CurrentContext returns a copy of the most recent symbols, oldest first.
// It holds MaxContextSize symbols once that many were observed and only
// the available history before that.
func (h *Hierarchy[S]) CurrentContext() []S {
	return slices.Clone(h.win.tail())
}

// Suffix returns a copy of the last k symbols of the current context, or
// false if fewer than k symbols were observed.
func (h *Hierarchy[S]) Suffix(k int) ([]S, bool) {
	s, ok := h.win.suffix(k)
	if !ok {
		return nil, false
	}
	return slices.Clone(s), true
}

// Lookup returns the statistics of ctx in the i-th order (ascending).
// It panics with *ContextLengthError if len(ctx) is not that order's size.
func (h *Hierarchy[S]) Lookup(i int, ctx []S) (View[S], bool) {
	return h.orders[i].Lookup(ctx)
}

// Contexts returns every context observed by the i-th order.
func (h *Hierarchy[S]) Contexts(i int) [][]S {
	return h.orders[i].Contexts()
}

// OrderStats summarizes one order of a Hierarchy.
type OrderStats struct {
	Size     int    // context length
	Contexts int    // distinct contexts
	Entries  int    // (context, symbol) pairs
	Total    uint64 // sum of all counts
}

// Stats summarizes every order in ascending order.
func (h *Hierarchy[S]) Stats() []OrderStats {
	out := make([]OrderStats, len(h.orders))
	for i, o := range h.orders {
		out[i] = OrderStats{
			Size:     o.size,
			Contexts: o.Len(),
			Entries:  o.Entries(),
			Total:    o.Total(),
		}
	}
	return out
}

// clone deep-copies the statistics and the window.
func (h *Hierarchy[S]) clone() *Hierarchy[S] {
	c := &Hierarchy[S]{orders: make([]*Order[S], len(h.orders))}
	for i, o := range h.orders {
		c.orders[i] = o.clone()
	}
	c.win = newWindow[S](h.win.size)
	c.win.buf = append(c.win.buf, h.win.tail()...)
	return c
}

// PruneReport describes what Pruned folded away.
type PruneReport struct {
	// Dropped[i] is the number of contexts removed from the i-th order.
	Dropped []int
	// Moved is the sum of the counts folded into lower orders.
	Moved uint64
}

// Pruned returns a copy of h in which every context of a non-lowest order
// whose total is below minTotal is removed and its counts are added to its
// heir: the suffix of that context in the next lower order. Orders are
// processed highest first so folded counts can cascade down. h itself is
// not modified.
func (h *Hierarchy[S]) Pruned(minTotal Count) (*Hierarchy[S], PruneReport, error) {
	c := h.clone()
	rep := PruneReport{Dropped: make([]int, len(c.orders))}
	for i := len(c.orders) - 1; i > 0; i-- {
		src, dst := c.orders[i], c.orders[i-1]
		for _, k := range src.sortedKeys() {
			st := src.contexts[k]
			if st.Total() >= minTotal {
				continue
			}
			ctx := unpackKey[S](k, src.width)
			heir := ctx[len(ctx)-dst.size:]
			for _, s := range st.Symbols() {
				n := st.Count(s)
				if err := dst.AddSymbol(heir, s, n); err != nil {
					return nil, PruneReport{}, fmt.Errorf("ppm: folding order %d context into order %d: %w", src.size, dst.size, err)
				}
				rep.Moved += uint64(n)
			}
			delete(src.contexts, k)
			rep.Dropped[i]++
		}
	}
	return c, rep, nil
}
