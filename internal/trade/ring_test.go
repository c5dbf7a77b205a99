package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushShiftsOldestOut(t *testing.T) {
	r := NewRing(3)
	assert.False(t, r.Full())

	for _, p := range []float64{1, 2, 3, 4} {
		r.Push(p)
	}
	assert.Equal(t, []float64{2, 3, 4}, r.Prices())
	assert.True(t, r.Full())

	r.Reset()
	assert.Equal(t, []float64{0, 0, 0}, r.Prices())
}

func TestRing_Declining(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   bool
	}{
		{"strictly falling", []float64{5, 4, 3}, true},
		{"flat step", []float64{5, 4, 4}, false},
		{"rise at the end", []float64{5, 4, 4.5}, false},
		{"not full", []float64{4, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(3)
			for _, p := range tt.prices {
				r.Push(p)
			}
			assert.Equal(t, tt.want, r.Declining())
		})
	}
}

func TestRing_AllAtOrBelow(t *testing.T) {
	r := NewRing(5)
	prices := []float64{95, 92, 91, 89, 88, 87, 86, 85}
	var confirmedAt []int
	for i, p := range prices {
		r.Push(p)
		if r.AllAtOrBelow(90) {
			confirmedAt = append(confirmedAt, i)
		}
	}
	// Only once five consecutive prices at or below 90 have landed.
	assert.Equal(t, []int{7}, confirmedAt)

	r.Push(90.5)
	assert.False(t, r.AllAtOrBelow(90), "one violating entry anywhere in the window")
}
