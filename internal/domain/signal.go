package domain

// Signal is the output of one strategy evaluation. It lives for a single cycle.
type Signal struct {
	Direction   Direction
	Reason      string
	StopPrice   Optional[float64] // Proposed protective stop (buy) or trail level (sell evaluation)
	TargetPrice Optional[float64] // Proposed hard-sell target (buy only)
}

// NoSignal returns an empty signal carrying a reason for logging.
func NoSignal(reason string) Signal {
	return Signal{Direction: DirectionNone, Reason: reason}
}

// BuySignal returns a buy signal.
func BuySignal(reason string) Signal {
	return Signal{Direction: DirectionBuy, Reason: reason}
}

// SellSignal returns a sell signal.
func SellSignal(reason string) Signal {
	return Signal{Direction: DirectionSell, Reason: reason}
}

// WithStop returns a copy of s proposing stop as the protective stop.
func (s Signal) WithStop(stop float64) Signal {
	s.StopPrice = Some(stop)
	return s
}

// WithTarget returns a copy of s proposing target as the hard-sell price.
func (s Signal) WithTarget(target float64) Signal {
	s.TargetPrice = Some(target)
	return s
}

// IsBuy reports whether the signal asks to open a position.
func (s Signal) IsBuy() bool { return s.Direction == DirectionBuy }

// IsSell reports whether the signal asks to close the open position.
func (s Signal) IsSell() bool { return s.Direction == DirectionSell }
