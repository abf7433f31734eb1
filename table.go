package ppm

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoRoot is returned by Freeze when the lowest order is not the
	// context-free order 0.
	ErrNoRoot = errors.New("ppm: lowest order must have context size 0")
	// ErrScale is returned by Freeze for a scale that cannot hold the leaves.
	ErrScale = errors.New("ppm: scale too small")
	// ErrAlphabet is returned by Freeze when the alphabet does not fit the
	// symbol type or an observed symbol lies outside it.
	ErrAlphabet = errors.New("ppm: symbol outside alphabet")
	// ErrNotEncodable is returned when no order of a Table, including the
	// root, can code a symbol.
	ErrNotEncodable = errors.New("ppm: symbol not encodable")
)

// Interval is a sub-range [Low, High) of [0, Scale) handed to an entropy coder.
type Interval struct {
	Low, High, Scale Count
}

// Decoder is the entropy decoder side of a Table. Target returns the
// current code value mapped into [0, scale); Consume narrows the decoder's
// range to the interval that was resolved from it.
type Decoder interface {
	Target(scale Count) Count
	Consume(iv Interval) error
}

// FreezeConfig controls how a Hierarchy is quantized into a Table.
// Zero fields take their defaults.
type FreezeConfig struct {
	Scale     Count // frequency budget of every non-root leaf, default 256
	RootScale Count // frequency budget of the order-0 leaf, default 1024
	Alphabet  int   // number of symbols 0..Alphabet-1 the root must cover, default 256
}

func (c *FreezeConfig) setDefaults() {
	if c.Scale == 0 {
		c.Scale = defaultScale
	}
	if c.RootScale == 0 {
		c.RootScale = defaultRootScale
	}
	if c.Alphabet == 0 {
		c.Alphabet = defaultAlphabet
	}
}

// Leaf is the frozen form of one context: symbol frequencies plus an escape
// slot, summing to exactly Scale. Symbols occupy [0, Scale-Exit) in
// ascending order and the escape slot occupies [Scale-Exit, Scale).
type Leaf[S Symbol] struct {
	syms  []S
	cum   []Count // cum[i] is the low bound of syms[i]; cum[len(syms)] = Scale-Exit
	exit  Count
	scale Count
}

func newLeaf[S Symbol](syms []S, freqs []Count, scale Count) *Leaf[S] {
	l := &Leaf[S]{syms: syms, cum: make([]Count, len(syms)+1), scale: scale}
	for i, f := range freqs {
		l.cum[i+1] = l.cum[i] + f
	}
	l.exit = scale - l.cum[len(syms)]
	return l
}

// Scale returns the sum of all frequencies including the escape slot.
func (l *Leaf[S]) Scale() Count { return l.scale }

// Exit returns the frequency of the escape slot.
func (l *Leaf[S]) Exit() Count { return l.exit }

// Len returns the number of symbols with a non-zero frequency.
func (l *Leaf[S]) Len() int { return len(l.syms) }

// Symbols returns the symbols of the leaf in ascending order.
func (l *Leaf[S]) Symbols() []S { return append([]S(nil), l.syms...) }

func (l *Leaf[S]) index(s S) (int, bool) {
	i := sort.Search(len(l.syms), func(i int) bool { return l.syms[i] >= s })
	return i, i < len(l.syms) && l.syms[i] == s
}

// Freq returns the frequency of s, zero if absent.
func (l *Leaf[S]) Freq(s S) Count {
	if i, ok := l.index(s); ok {
		return l.cum[i+1] - l.cum[i]
	}
	return 0
}

// Interval returns the coding interval of s.
func (l *Leaf[S]) Interval(s S) (Interval, bool) {
	i, ok := l.index(s)
	if !ok {
		return Interval{}, false
	}
	return Interval{Low: l.cum[i], High: l.cum[i+1], Scale: l.scale}, true
}

// EscapeInterval returns the coding interval of the escape slot.
func (l *Leaf[S]) EscapeInterval() Interval {
	return Interval{Low: l.scale - l.exit, High: l.scale, Scale: l.scale}
}

// Find resolves a target in [0, Scale) to a symbol, or to the escape slot
// when escape is true.
func (l *Leaf[S]) Find(target Count) (s S, iv Interval, escape bool) {
	n := len(l.syms)
	if target >= l.cum[n] {
		return s, l.EscapeInterval(), true
	}
	// first i with cum[i+1] > target
	i := sort.Search(n, func(i int) bool { return l.cum[i+1] > target })
	return l.syms[i], Interval{Low: l.cum[i], High: l.cum[i+1], Scale: l.scale}, false
}

type tableOrder[S Symbol] struct {
	size   int
	scale  Count
	leaves map[string]*Leaf[S]
}

// Table is an immutable, quantized snapshot of a Hierarchy suitable for
// driving an arithmetic coder. It is safe for concurrent use.
type Table[S Symbol] struct {
	width  int
	orders []tableOrder[S] // ascending by size; orders[0].size == 0
}

// Freeze quantizes every context of h into a Leaf. Non-root leaves reserve
// at least one unit for the escape slot and scale the observed counts into
// the rest, dropping symbols that round to zero. The root leaf gives every
// symbol of the alphabet at least one unit so any symbol stays encodable.
func (h *Hierarchy[S]) Freeze(cfg FreezeConfig) (*Table[S], error) {
	cfg.setDefaults()
	if h.orders[0].size != 0 {
		return nil, ErrNoRoot
	}
	if cfg.Scale < 2 {
		return nil, fmt.Errorf("%w: leaf scale %d", ErrScale, cfg.Scale)
	}
	if cfg.Alphabet < 0 || uint64(cfg.Alphabet-1) > uint64(^S(0)) {
		return nil, fmt.Errorf("%w: alphabet of %d symbols", ErrAlphabet, cfg.Alphabet)
	}
	if uint64(cfg.RootScale) <= uint64(cfg.Alphabet) {
		return nil, fmt.Errorf("%w: root scale %d for alphabet of %d symbols", ErrScale, cfg.RootScale, cfg.Alphabet)
	}
	t := &Table[S]{width: symbolWidth[S](), orders: make([]tableOrder[S], len(h.orders))}
	for i, o := range h.orders {
		to := tableOrder[S]{size: o.size, scale: cfg.Scale, leaves: make(map[string]*Leaf[S], len(o.contexts))}
		if i == 0 {
			to.scale = cfg.RootScale
			root, err := freezeRoot(o.contexts[""], cfg.RootScale, cfg.Alphabet)
			if err != nil {
				return nil, err
			}
			to.leaves[""] = root
		} else {
			for k, st := range o.contexts {
				to.leaves[k] = freezeLeaf(st, cfg.Scale)
			}
		}
		t.orders[i] = to
	}
	return t, nil
}

func freezeLeaf[S Symbol](st *Stats[S], scale Count) *Leaf[S] {
	var (
		current = uint64(st.Total()) + 1 // one unit of escape
		syms    []S
		freqs   []Count
	)
	for _, s := range st.Symbols() {
		f := uint64(st.Count(s)) * uint64(scale) / current
		if f == 0 {
			continue
		}
		syms = append(syms, s)
		freqs = append(freqs, Count(f))
	}
	return newLeaf(syms, freqs, scale)
}

// freezeRoot builds the order-0 leaf. st may be nil when nothing was trained.
func freezeRoot[S Symbol](st *Stats[S], scale Count, alphabet int) (*Leaf[S], error) {
	var total Count
	if st != nil {
		for _, s := range st.Symbols() {
			if uint64(s) >= uint64(alphabet) {
				return nil, fmt.Errorf("%w: %d in alphabet of %d symbols", ErrAlphabet, uint64(s), alphabet)
			}
		}
		total = st.Total()
	}
	var (
		budget = uint64(scale) - uint64(alphabet)
		syms   = make([]S, alphabet)
		freqs  = make([]Count, alphabet)
	)
	for a := 0; a < alphabet; a++ {
		s := S(a)
		syms[a] = s
		freqs[a] = 1
		if total > 0 {
			freqs[a] += Count(uint64(st.Count(s)) * budget / uint64(total))
		}
	}
	return newLeaf(syms, freqs, scale), nil
}

// Sizes returns the context sizes of the table's orders in ascending order.
func (t *Table[S]) Sizes() []int {
	out := make([]int, len(t.orders))
	for i := range t.orders {
		out[i] = t.orders[i].size
	}
	return out
}

// Leaf returns the frozen leaf of ctx in the i-th order.
// It panics with *ContextLengthError if len(ctx) is not that order's size.
func (t *Table[S]) Leaf(i int, ctx []S) (*Leaf[S], bool) {
	o := &t.orders[i]
	if len(ctx) != o.size {
		panic(&ContextLengthError{Size: o.size, Got: len(ctx)})
	}
	var buf [64]byte
	l, ok := o.leaves[string(appendKey(buf[:0], ctx, t.width))]
	return l, ok
}

// leafFor returns the leaf of the i-th order for the suffix of history,
// or nil if history is too short or the context was never seen.
func (t *Table[S]) leafFor(i int, history []S) *Leaf[S] {
	o := &t.orders[i]
	if o.size > len(history) {
		return nil
	}
	var buf [64]byte
	return o.leaves[string(appendKey(buf[:0], history[len(history)-o.size:], t.width))]
}

// AppendIntervals appends to dst the intervals that code s after history:
// one escape interval per order whose leaf lacks s, then the interval of s
// in the highest order that has it. Orders with too little history or no
// leaf for the context are passed over without output, which a decoder
// observing the same history reproduces.
func (t *Table[S]) AppendIntervals(dst []Interval, history []S, s S) ([]Interval, error) {
	for i := len(t.orders) - 1; i >= 0; i-- {
		l := t.leafFor(i, history)
		if l == nil {
			continue
		}
		if iv, ok := l.Interval(s); ok {
			return append(dst, iv), nil
		}
		if i == 0 {
			break
		}
		dst = append(dst, l.EscapeInterval())
	}
	return dst, fmt.Errorf("%w: %d", ErrNotEncodable, uint64(s))
}

// Decode resolves the next symbol after history, pulling targets from d
// and handing it every interval consumed, escapes included.
func (t *Table[S]) Decode(history []S, d Decoder) (S, error) {
	var zero S
	for i := len(t.orders) - 1; i >= 0; i-- {
		l := t.leafFor(i, history)
		if l == nil {
			continue
		}
		target := d.Target(l.scale)
		if target >= l.scale {
			return zero, fmt.Errorf("%w: target %d outside scale %d", ErrCorrupt, target, l.scale)
		}
		s, iv, escape := l.Find(target)
		if err := d.Consume(iv); err != nil {
			return zero, err
		}
		if !escape {
			return s, nil
		}
		if i == 0 {
			return zero, fmt.Errorf("%w: escape from root", ErrCorrupt)
		}
	}
	return zero, fmt.Errorf("%w: no root leaf", ErrCorrupt)
}
