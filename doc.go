// Package ppm builds the statistical model of a Prediction by Partial
// Matching (PPM) compressor.
//
// # Overview
//
// A PPM model keeps, for several context lengths ("orders"), a table of
// how often each symbol followed each context. To code a symbol, the coder
// asks the highest order first; if that context never saw the symbol it
// codes an escape and falls back to the next lower order, down to the
// context-free order 0.
//
// This package produces those statistics and the per-symbol escape chain.
// It does not emit bits: the arithmetic or range coder is supplied by the
// caller.
//
// # Components
//
//   - Stats: next-symbol counts of one context.
//   - Order: every context of one fixed length and its Stats.
//   - Hierarchy: the orders of a session, strictly ascending by context
//     length, plus the rolling window of the most recent symbols. Each
//     order's context is the suffix of that window.
//   - Predictor: feeds a stream into a Hierarchy, one symbol at a time.
//
// # Update cycle
//
// Predictor.Update runs three phases in a fixed sequence:
//
//  1. predict: walk the orders from highest to lowest and report, per
//     order, whether the context is known, whether it contains the symbol,
//     and the symbol and context counts;
//  2. update: add one occurrence of the symbol to every order's context;
//  3. slide: append the symbol to the window, evicting the oldest one.
//
// Predicting before updating keeps a symbol out of its own estimate.
//
// # Basic Usage
//
//	p, err := ppm.NewPredictor[byte](
//	    ppm.OrderConfig{Size: 0},
//	    ppm.OrderConfig{Size: 1},
//	    ppm.OrderConfig{Size: 2},
//	)
//	if err != nil {
//	    return err
//	}
//	for _, b := range input {
//	    chain, err := p.Update(b)
//	    if err != nil {
//	        return err
//	    }
//	    coder.Code(chain) // escapes first, then the hit (if any)
//	}
//
// # Frozen tables
//
// A trained Hierarchy can be frozen into a Table: every context is scaled
// to a fixed frequency budget with a dedicated escape slot, and order 0 is
// extended to cover the whole alphabet so every symbol stays encodable.
// A Table maps symbols to coding intervals, resolves decoder targets back
// to symbols, and serializes with WriteTo/ReadFrom:
//
//	tbl, err := p.Hierarchy().Freeze(ppm.FreezeConfig{})
//	ivs, err := tbl.AppendIntervals(nil, history, sym)
//	data, err := tbl.MarshalBinary()
//
// Hierarchy.Pruned folds sparse high-order contexts into their suffix
// context before freezing, trading a little prediction quality for a
// smaller table.
//
// # Concurrency
//
// Hierarchy and Predictor are single-stream and not safe for concurrent
// use; independent streams need independent instances. A Table is
// immutable and may be shared.
package ppm
