package indicators

// CrossedAbove reports a bullish crossover between two paired samples:
// the fast line was strictly below the slow one and is now strictly above it.
// Touching or equal values never count.
func CrossedAbove(prevFast, prevSlow, curFast, curSlow float64) bool {
	return prevFast < prevSlow && curFast > curSlow
}

// CrossedBelow reports a bearish crossover, the mirror of CrossedAbove.
func CrossedBelow(prevFast, prevSlow, curFast, curSlow float64) bool {
	return prevFast > prevSlow && curFast < curSlow
}

// SeriesCrossedAbove applies CrossedAbove to the two most recent values of fast and slow.
// It returns false when either series holds fewer than two values.
func SeriesCrossedAbove(fast, slow *Series[float64]) bool {
	pf, cf, ok1 := lastTwo(fast)
	ps, cs, ok2 := lastTwo(slow)
	return ok1 && ok2 && CrossedAbove(pf, ps, cf, cs)
}

// SeriesCrossedBelow applies CrossedBelow to the two most recent values of fast and slow.
func SeriesCrossedBelow(fast, slow *Series[float64]) bool {
	pf, cf, ok1 := lastTwo(fast)
	ps, cs, ok2 := lastTwo(slow)
	return ok1 && ok2 && CrossedBelow(pf, ps, cf, cs)
}

func lastTwo(s *Series[float64]) (prev, cur float64, ok bool) {
	cur, ok1 := s.Back(0)
	prev, ok2 := s.Back(1)
	return prev, cur, ok1 && ok2
}

// IsRising reports whether the last n values are strictly increasing.
// n < 2 or fewer than n values yields false.
func IsRising(values []float64, n int) bool {
	return monotonic(values, n, func(a, b float64) bool { return b > a })
}

// IsFalling reports whether the last n values are strictly decreasing.
func IsFalling(values []float64, n int) bool {
	return monotonic(values, n, func(a, b float64) bool { return b < a })
}

func monotonic(values []float64, n int, ok func(a, b float64) bool) bool {
	if n < 2 || len(values) < n {
		return false
	}
	tail := values[len(values)-n:]
	for i := 1; i < len(tail); i++ {
		if !ok(tail[i-1], tail[i]) {
			return false
		}
	}
	return true
}

// BullishDivergence reports whether, across the same lookback window, price fell
// strictly monotonically while the indicator rose strictly monotonically.
// Windows that are only partly monotonic do not qualify.
func BullishDivergence(prices, indicator []float64, lookback int) bool {
	return IsFalling(prices, lookback) && IsRising(indicator, lookback)
}

// BearishDivergence reports whether, across the same lookback window, price rose
// strictly monotonically while the indicator fell strictly monotonically.
func BearishDivergence(prices, indicator []float64, lookback int) bool {
	return IsRising(prices, lookback) && IsFalling(indicator, lookback)
}
