package ppm

// window keeps the last size symbols contiguous in memory so every order's
// context is a plain subslice. The backing array is twice the window; when
// it fills up the live tail is copied to the front.
type window[S Symbol] struct {
	size int
	buf  []S
}

func newWindow[S Symbol](size int) window[S] {
	return window[S]{size: size, buf: make([]S, 0, 2*size)}
}

// push appends s, evicting the oldest symbol once more than size are held.
func (w *window[S]) push(s S) {
	if w.size == 0 {
		return
	}
	if len(w.buf) == cap(w.buf) {
		n := copy(w.buf, w.buf[len(w.buf)-w.size+1:])
		w.buf = w.buf[:n]
	}
	w.buf = append(w.buf, s)
}

// tail returns the most recent min(size, seen) symbols, oldest first.
// The result aliases the window and is invalidated by push.
func (w *window[S]) tail() []S {
	if len(w.buf) > w.size {
		return w.buf[len(w.buf)-w.size:]
	}
	return w.buf
}

// suffix returns the last k symbols, or false if fewer than k were seen.
func (w *window[S]) suffix(k int) ([]S, bool) {
	t := w.tail()
	if k > len(t) {
		return nil, false
	}
	return t[len(t)-k:], true
}

// reset forgets the history, used at stream boundaries.
func (w *window[S]) reset() {
	w.buf = w.buf[:0]
}
