package indicators

import "math"

// window is a fixed-size ring of the most recent inputs.
type window struct {
	buf   []float64
	next  int
	count int
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

// push stores x and returns the value it evicted, if the window was full.
func (w *window) push(x float64) (evicted float64, full bool) {
	full = w.count == len(w.buf)
	evicted = w.buf[w.next]
	w.buf[w.next] = x
	w.next = (w.next + 1) % len(w.buf)
	if !full {
		w.count++
	}
	return evicted, full
}

func (w *window) full() bool { return w.count == len(w.buf) }

func (w *window) reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.next, w.count = 0, 0
}

func (w *window) minMax() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < w.count; i++ {
		lo = math.Min(lo, w.buf[i])
		hi = math.Max(hi, w.buf[i])
	}
	return lo, hi
}

// collapseEpsilon is the relative deviation below which a window counts as flat.
const collapseEpsilon = 1e-12

// meanStdDev returns the mean and population standard deviation. A flat
// window yields its value exactly and a zero deviation.
func (w *window) meanStdDev() (mean, std float64) {
	if w.count == 0 {
		return 0, 0
	}
	if lo, hi := w.minMax(); lo == hi {
		return lo, 0
	}
	n := float64(w.count)
	for i := 0; i < w.count; i++ {
		mean += w.buf[i]
	}
	mean /= n
	var variance float64
	for i := 0; i < w.count; i++ {
		d := w.buf[i] - mean
		variance += d * d
	}
	std = math.Sqrt(variance / n)
	if std <= collapseEpsilon*math.Max(1, math.Abs(mean)) {
		std = 0
	}
	return mean, std
}

// smaCalc is a running simple moving average over numeric inputs.
type smaCalc struct {
	period int
	win    *window
	sum    float64
}

func newSMACalc(period int) *smaCalc {
	return &smaCalc{period: period, win: newWindow(period)}
}

func (s *smaCalc) add(x float64) (float64, bool) {
	evicted, wasFull := s.win.push(x)
	s.sum += x
	if wasFull {
		s.sum -= evicted
	}
	if !s.win.full() {
		return 0, false
	}
	return s.sum / float64(s.period), true
}

func (s *smaCalc) reset() {
	s.win.reset()
	s.sum = 0
}

// emaCalc is an exponential moving average seeded with the simple mean of its first period inputs.
type emaCalc struct {
	period int
	k      float64
	count  int
	seed   float64
	value  float64
}

func newEMACalc(period int) *emaCalc {
	return &emaCalc{period: period, k: 2.0 / float64(period+1)}
}

func (e *emaCalc) add(x float64) (float64, bool) {
	e.count++
	switch {
	case e.count < e.period:
		e.seed += x
		return 0, false
	case e.count == e.period:
		e.seed += x
		e.value = e.seed / float64(e.period)
	default:
		e.value = (x-e.value)*e.k + e.value
	}
	return e.value, true
}

func (e *emaCalc) reset() {
	e.count, e.seed, e.value = 0, 0, 0
}

// wilder is Wilder's running average: the first value is the arithmetic mean of the
// first n inputs, every later value is prev - prev/n + x/n.
type wilder struct {
	n     int
	count int
	seed  float64
	value float64
}

func newWilder(n int) *wilder {
	return &wilder{n: n}
}

func (w *wilder) add(x float64) (float64, bool) {
	w.count++
	n := float64(w.n)
	switch {
	case w.count < w.n:
		w.seed += x
		return 0, false
	case w.count == w.n:
		w.seed += x
		w.value = w.seed / n
	default:
		w.value = w.value - w.value/n + x/n
	}
	return w.value, true
}

func (w *wilder) reset() {
	w.count, w.seed, w.value = 0, 0, 0
}
