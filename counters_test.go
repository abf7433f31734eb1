package ppm

import (
	"errors"
	"testing"
)

func TestStatsAccumulate(t *testing.T) {
	st := NewStats[byte]()
	adds := []struct {
		sym byte
		n   Count
	}{{'a', 1}, {'b', 3}, {'a', 2}, {'c', 0}, {'b', 1}}
	var want Count
	for _, a := range adds {
		if err := st.AddSymbol(a.sym, a.n); err != nil {
			t.Fatalf("AddSymbol(%q, %d): %v", a.sym, a.n, err)
		}
		want += a.n
		if st.Total() != want {
			t.Fatalf("Total=%d want %d", st.Total(), want)
		}
	}
	if st.Count('a') != 3 || st.Count('b') != 4 {
		t.Fatalf("counts a=%d b=%d", st.Count('a'), st.Count('b'))
	}
	// adding zero must not create an entry
	if st.Len() != 2 || st.Count('c') != 0 {
		t.Fatalf("zero count created an entry: len=%d", st.Len())
	}
}

func TestStatsZeroValue(t *testing.T) {
	var st Stats[uint16]
	if st.Total() != 0 || st.Len() != 0 {
		t.Fatalf("zero value not empty")
	}
	if err := st.AddSymbol(1000, 2); err != nil {
		t.Fatalf("AddSymbol on zero value: %v", err)
	}
	if st.Count(1000) != 2 {
		t.Fatalf("count=%d", st.Count(1000))
	}
}

func TestStatsOverflow(t *testing.T) {
	st := NewStats[byte]()
	if err := st.AddSymbol('a', maxCount-1); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := st.AddSymbol('b', 1); err != nil {
		t.Fatalf("last unit: %v", err)
	}
	err := st.AddSymbol('b', 1)
	if !errors.Is(err, ErrCountOverflow) {
		t.Fatalf("expected ErrCountOverflow, got %v", err)
	}
	err = st.AddSymbol('c', 1)
	if !errors.Is(err, ErrCountOverflow) {
		t.Fatalf("expected ErrCountOverflow for new symbol, got %v", err)
	}
	if st.Total() != maxCount || st.Count('a') != maxCount-1 || st.Count('b') != 1 || st.Len() != 2 {
		t.Fatalf("overflow modified the table: total=%d len=%d", st.Total(), st.Len())
	}
}

func TestStatsRangeFind(t *testing.T) {
	st := NewStats[byte]()
	st.AddSymbol('c', 3)
	st.AddSymbol('a', 1)
	st.AddSymbol('b', 2)

	if got := st.Symbols(); string(got) != "abc" {
		t.Fatalf("Symbols=%q", got)
	}
	lo, hi, ok := st.Range('b')
	if !ok || lo != 1 || hi != 3 {
		t.Fatalf("Range(b)=[%d,%d) ok=%v", lo, hi, ok)
	}
	if _, _, ok := st.Range('z'); ok {
		t.Fatalf("Range of absent symbol reported ok")
	}
	for target := Count(0); target < st.Total(); target++ {
		s, lo, hi, ok := st.Find(target)
		if !ok || target < lo || target >= hi {
			t.Fatalf("Find(%d)=%q [%d,%d) ok=%v", target, s, lo, hi, ok)
		}
		if rlo, rhi, _ := st.Range(s); rlo != lo || rhi != hi {
			t.Fatalf("Find/Range disagree for %q", s)
		}
	}
	if _, _, _, ok := st.Find(st.Total()); ok {
		t.Fatalf("Find past total reported ok")
	}
}
