package ppm

import "fmt"

// Outcome is what one order contributed while predicting a symbol.
type Outcome uint8

const (
	// Skipped means fewer symbols than the order's size have been seen, so
	// the order has no context yet.
	Skipped Outcome = iota
	// Absent means the context was never observed.
	Absent
	// Escape means the context was observed but never followed by the symbol.
	Escape
	// Hit means the context has a count for the symbol.
	Hit
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Absent:
		return "absent"
	case Escape:
		return "escape"
	case Hit:
		return "hit"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Estimate is one link of an escape chain.
type Estimate struct {
	Order    int     // context size of the order
	Outcome  Outcome // see Outcome
	Count    Count   // count of the symbol in the context (Hit only)
	Total    Count   // total count of the context (Escape and Hit)
	Distinct int     // distinct symbols in the context (Escape and Hit)
}

// Chain is the escape chain for one symbol, highest order first. It ends at
// the first Hit, or after the lowest order if no order knows the symbol.
type Chain []Estimate

// Hit returns the estimate of the order that knew the symbol.
func (c Chain) Hit() (Estimate, bool) {
	if n := len(c); n > 0 && c[n-1].Outcome == Hit {
		return c[n-1], true
	}
	return Estimate{}, false
}

// Novel reports whether no order, including the lowest, has seen the
// symbol. The coder is expected to fall back to a flat alphabet model.
func (c Chain) Novel() bool {
	_, ok := c.Hit()
	return !ok
}

// Escapes returns how many orders escaped or had no context before the hit.
func (c Chain) Escapes() int {
	n := 0
	for _, e := range c {
		if e.Outcome == Escape || e.Outcome == Absent {
			n++
		}
	}
	return n
}

// Predictor drives a Hierarchy one symbol at a time. Each Update predicts
// the symbol from the current state, then records it in every order, then
// slides the window, in exactly that sequence, so a symbol never
// contributes to its own prediction.
type Predictor[S Symbol] struct {
	h     *Hierarchy[S]
	chain Chain
}

// NewPredictor returns a predictor over an empty hierarchy built from cfgs.
func NewPredictor[S Symbol](cfgs ...OrderConfig) (*Predictor[S], error) {
	h, err := NewHierarchy[S](cfgs...)
	if err != nil {
		return nil, err
	}
	return &Predictor[S]{h: h}, nil
}

// Hierarchy returns the model being trained.
func (p *Predictor[S]) Hierarchy() *Hierarchy[S] { return p.h }

// Predict builds the escape chain for s without modifying the model.
func (p *Predictor[S]) Predict(s S) Chain {
	return p.predict(nil, s)
}

func (p *Predictor[S]) predict(dst Chain, s S) Chain {
	for i := len(p.h.orders) - 1; i >= 0; i-- {
		o := p.h.orders[i]
		e := Estimate{Order: o.size}
		ctx, ok := p.h.win.suffix(o.size)
		if !ok {
			dst = append(dst, e)
			continue
		}
		st := o.stats(ctx)
		if st == nil {
			e.Outcome = Absent
			dst = append(dst, e)
			continue
		}
		e.Total = st.Total()
		e.Distinct = st.Len()
		if n := st.Count(s); n > 0 {
			e.Outcome = Hit
			e.Count = n
			return append(dst, e)
		}
		e.Outcome = Escape
		dst = append(dst, e)
	}
	return dst
}

// Update processes the next symbol of the stream and returns its escape
// chain as predicted before s was recorded. The returned Chain is reused by
// the next call to Update.
//
// If any order cannot take one more count, Update returns ErrCountOverflow
// and neither the statistics nor the window are modified.
func (p *Predictor[S]) Update(s S) (Chain, error) {
	p.chain = p.predict(p.chain[:0], s)

	for i := len(p.h.orders) - 1; i >= 0; i-- {
		o := p.h.orders[i]
		ctx, ok := p.h.win.suffix(o.size)
		if !ok {
			continue
		}
		if st := o.stats(ctx); st != nil && !st.canAdd(1) {
			return nil, fmt.Errorf("ppm: order %d: %w", o.size, ErrCountOverflow)
		}
	}
	for i := len(p.h.orders) - 1; i >= 0; i-- {
		o := p.h.orders[i]
		ctx, ok := p.h.win.suffix(o.size)
		if !ok {
			continue
		}
		if err := o.AddSymbol(ctx, s, 1); err != nil {
			// unreachable after the capacity check above
			panic(err)
		}
	}

	p.h.win.push(s)
	return p.chain, nil
}

// Train calls Update for every symbol in order.
func (p *Predictor[S]) Train(symbols []S) error {
	for i, s := range symbols {
		if _, err := p.Update(s); err != nil {
			return fmt.Errorf("ppm: symbol %d: %w", i, err)
		}
	}
	return nil
}

// Restart forgets the rolling history without touching the statistics.
// Call it between independent streams trained into the same model.
func (p *Predictor[S]) Restart() {
	p.h.win.reset()
}
