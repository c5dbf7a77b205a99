package trade

// Ring is a fixed-length confirmation window of the most recent prices, oldest first.
// A zero entry means the slot has not been filled since the last reset.
type Ring struct {
	prices []float64
}

// NewRing creates a ring of n zeroed slots.
func NewRing(n int) *Ring {
	return &Ring{prices: make([]float64, n)}
}

// Push shifts every entry one slot towards the front and stores price in the last slot.
func (r *Ring) Push(price float64) {
	if len(r.prices) == 0 {
		return
	}
	copy(r.prices, r.prices[1:])
	r.prices[len(r.prices)-1] = price
}

// Reset zeroes every slot.
func (r *Ring) Reset() {
	clear(r.prices)
}

// Len returns the window length.
func (r *Ring) Len() int { return len(r.prices) }

// Full reports whether every slot holds a price.
func (r *Ring) Full() bool {
	if len(r.prices) == 0 {
		return false
	}
	for _, p := range r.prices {
		if p == 0 {
			return false
		}
	}
	return true
}

// Declining reports whether the full window is strictly decreasing.
func (r *Ring) Declining() bool {
	if !r.Full() || len(r.prices) < 2 {
		return false
	}
	for i := 1; i < len(r.prices); i++ {
		if r.prices[i] >= r.prices[i-1] {
			return false
		}
	}
	return true
}

// AllAtOrBelow reports whether the full window sits at or below level.
func (r *Ring) AllAtOrBelow(level float64) bool {
	if !r.Full() {
		return false
	}
	for _, p := range r.prices {
		if p > level {
			return false
		}
	}
	return true
}

// Prices returns a copy of the window, oldest first.
func (r *Ring) Prices() []float64 {
	out := make([]float64, len(r.prices))
	copy(out, r.prices)
	return out
}
