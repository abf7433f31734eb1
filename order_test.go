package ppm

import (
	"errors"
	"testing"
)

func TestOrderAddLookup(t *testing.T) {
	o := NewOrder[byte](2)
	if o.Size() != 2 {
		t.Fatalf("size=%d", o.Size())
	}
	if err := o.AddSymbol([]byte("ab"), 'c', 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := o.AddSymbol([]byte("ab"), 'c', 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := o.AddSymbol([]byte("ab"), 'd', 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := o.AddSymbol([]byte("ba"), 'a', 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	v, ok := o.Lookup([]byte("ab"))
	if !ok {
		t.Fatalf("context ab not found")
	}
	if v.Total() != 4 || v.Count('c') != 3 || v.Len() != 2 {
		t.Fatalf("ab stats total=%d c=%d len=%d", v.Total(), v.Count('c'), v.Len())
	}
	if _, ok := o.Lookup([]byte("zz")); ok {
		t.Fatalf("unseen context reported present")
	}
	if o.Len() != 2 || o.Entries() != 3 || o.Total() != 5 {
		t.Fatalf("len=%d entries=%d total=%d", o.Len(), o.Entries(), o.Total())
	}

	ctxs := o.Contexts()
	if len(ctxs) != 2 || string(ctxs[0]) != "ab" || string(ctxs[1]) != "ba" {
		t.Fatalf("contexts=%q", ctxs)
	}
}

func TestOrderViewTracksUpdates(t *testing.T) {
	o := NewOrder[byte](1)
	o.AddSymbol([]byte("x"), 'y', 1)
	v, _ := o.Lookup([]byte("x"))
	o.AddSymbol([]byte("x"), 'y', 1)
	if v.Total() != 2 {
		t.Fatalf("view is stale: total=%d", v.Total())
	}
}

func TestOrderZeroSize(t *testing.T) {
	o := NewOrder[byte](0)
	if _, ok := o.Lookup(nil); ok {
		t.Fatalf("empty order has a context")
	}
	o.AddSymbol(nil, 'q', 1)
	v, ok := o.Lookup([]byte{})
	if !ok || v.Count('q') != 1 {
		t.Fatalf("empty context lookup failed")
	}
	if ctxs := o.Contexts(); len(ctxs) != 1 || len(ctxs[0]) != 0 {
		t.Fatalf("contexts=%v", ctxs)
	}
}

func TestOrderZeroCountDoesNotCreateContext(t *testing.T) {
	o := NewOrder[byte](1)
	if err := o.AddSymbol([]byte("a"), 'b', 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if o.Len() != 0 {
		t.Fatalf("zero count created a context")
	}
}

func expectContextLengthPanic(t *testing.T, size, got int, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected error panic, got %v", r)
		}
		var cle *ContextLengthError
		if !errors.As(err, &cle) {
			t.Fatalf("expected *ContextLengthError, got %T", err)
		}
		if cle.Size != size || cle.Got != got {
			t.Fatalf("error fields size=%d got=%d", cle.Size, cle.Got)
		}
	}()
	fn()
}

func TestOrderContextLengthViolation(t *testing.T) {
	o := NewOrder[byte](2)
	expectContextLengthPanic(t, 2, 1, func() { o.AddSymbol([]byte("a"), 'b', 1) })
	expectContextLengthPanic(t, 2, 3, func() { o.Lookup([]byte("abc")) })
	if o.Len() != 0 {
		t.Fatalf("rejected context was stored")
	}
}
