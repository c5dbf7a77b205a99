package indicators

// Series is the append-only output of an indicator, aligned to the candles it consumed.
// Old values are pruned from the front once the retention cap is exceeded; the cap is
// never smaller than the indicator's warm-up length.
type Series[T any] struct {
	values    []T
	dropped   int
	retention int
}

func newSeries[T any](retention, floor int) *Series[T] {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if retention < floor {
		retention = floor
	}
	return &Series[T]{
		values:    make([]T, 0, retention),
		retention: retention,
	}
}

func (s *Series[T]) append(v T) {
	s.values = append(s.values, v)
	if over := len(s.values) - s.retention; over > 0 {
		s.values = s.values[over:]
		s.dropped += over
	}
}

func (s *Series[T]) reset() {
	s.values = s.values[:0]
	s.dropped = 0
}

// Len returns the number of retained values.
func (s *Series[T]) Len() int { return len(s.values) }

// Total returns the number of values ever emitted, including pruned ones.
func (s *Series[T]) Total() int { return s.dropped + len(s.values) }

// Dropped returns the number of values pruned from the front.
func (s *Series[T]) Dropped() int { return s.dropped }

// Retention returns the pruning cap.
func (s *Series[T]) Retention() int { return s.retention }

// At returns the i-th retained value, 0 being the oldest retained.
func (s *Series[T]) At(i int) T { return s.values[i] }

// Last returns the most recent value.
func (s *Series[T]) Last() (T, bool) {
	return s.Back(0)
}

// Back returns the value n steps before the most recent one (Back(0) == Last()).
func (s *Series[T]) Back(n int) (T, bool) {
	var zero T
	if n < 0 || n >= len(s.values) {
		return zero, false
	}
	return s.values[len(s.values)-1-n], true
}

// Tail returns a copy of the n most recent values, oldest first, or nil if fewer are retained.
func (s *Series[T]) Tail(n int) []T {
	if n <= 0 || n > len(s.values) {
		return nil
	}
	out := make([]T, n)
	copy(out, s.values[len(s.values)-n:])
	return out
}

// Values returns a copy of all retained values, oldest first.
func (s *Series[T]) Values() []T {
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

// Map projects a series tail onto one of its fields.
func Map[T any](values []T, f func(T) float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}
