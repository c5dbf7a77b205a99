package trade

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptoSignalBot/internal/domain"
)

var (
	// ErrTradeAlreadyOpen is returned when Open is called while a position is held.
	ErrTradeAlreadyOpen = errors.New("trade already open")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid trade state transition")
	// ErrInvalidConfig is returned by NewMachine for unusable parameters.
	ErrInvalidConfig = errors.New("invalid trade configuration")
)

// State is the lifecycle state of the machine's current trade.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateConfirmingExit
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateConfirmingExit:
		return "confirming_exit"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the named parameters of the trade state machine.
type Config struct {
	RingSize         int     // Confirmation window length
	StopRatio        float64 // Hard stop as a fraction of the entry price when the strategy gives none; 0 disables
	TargetRatio      float64 // Hard sell as a multiple of the entry price when the strategy gives none; 0 disables
	MaxOrderAttempts int     // Unfilled cycles tolerated per order; 0 means unlimited
	ExitOnDecline    bool    // Exit on a strictly declining full confirmation window
}

// Machine tracks one position of an agent from entry to exit.
// It only reads fills; placing and cancelling orders is the caller's job.
type Machine struct {
	config       Config
	strategy     string
	product      string
	state        State
	trade        domain.Trade
	ring         *Ring
	buyAttempts  int
	sellAttempts int
}

// NewMachine creates an idle machine for the given strategy and product.
func NewMachine(strategy, product string, config Config) (*Machine, error) {
	if config.RingSize <= 0 {
		return nil, fmt.Errorf("%w: ring size %d", ErrInvalidConfig, config.RingSize)
	}
	if config.StopRatio < 0 || config.StopRatio >= 1 {
		return nil, fmt.Errorf("%w: stop ratio %.4f must be in [0,1)", ErrInvalidConfig, config.StopRatio)
	}
	if config.TargetRatio != 0 && config.TargetRatio <= 1 {
		return nil, fmt.Errorf("%w: target ratio %.4f must be above 1", ErrInvalidConfig, config.TargetRatio)
	}
	if config.MaxOrderAttempts < 0 {
		return nil, fmt.Errorf("%w: max order attempts %d", ErrInvalidConfig, config.MaxOrderAttempts)
	}
	return &Machine{
		config:   config,
		strategy: strategy,
		product:  product,
		ring:     NewRing(config.RingSize),
	}, nil
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// HasPosition reports whether a position is held (Open or ConfirmingExit).
func (m *Machine) HasPosition() bool {
	return m.state == StateOpen || m.state == StateConfirmingExit
}

// Trade returns a copy of the current trade.
func (m *Machine) Trade() domain.Trade { return m.trade }

// Ring returns the confirmation window.
func (m *Machine) Ring() *Ring { return m.ring }

// Open records the entry fill. Explicit stop and target prices win over the
// configured ratios.
func (m *Machine) Open(fill domain.Fill, stop, target domain.Optional[float64]) (domain.Trade, error) {
	switch m.state {
	case StateOpen, StateConfirmingExit:
		return domain.Trade{}, fmt.Errorf("%w: trade %s", ErrTradeAlreadyOpen, m.trade.ID)
	case StateClosed:
		return domain.Trade{}, fmt.Errorf("%w: open from %s, restart first", ErrInvalidTransition, m.state)
	}
	if fill.Price <= 0 || fill.Quantity <= 0 {
		return domain.Trade{}, fmt.Errorf("%w: entry fill %.8f @ %.8f", ErrInvalidTransition, fill.Quantity, fill.Price)
	}

	if !stop.IsSet() && m.config.StopRatio > 0 {
		stop = domain.Some(fill.Price * m.config.StopRatio)
	}
	if !target.IsSet() && m.config.TargetRatio > 0 {
		target = domain.Some(fill.Price * m.config.TargetRatio)
	}

	m.ring.Reset()
	m.trade = domain.Trade{
		ID:       uuid.NewString(),
		Strategy: m.strategy,
		Product:  m.product,
		Entry:    fill,
		MinPrice: fill.Price,
		MaxPrice: fill.Price,
		HardStop: stop,
		HardSell: target,
		OpenedAt: fill.Time,
		BuyTries: m.buyAttempts,
	}
	m.buyAttempts = 0
	m.sellAttempts = 0
	m.state = StateOpen
	return m.trade, nil
}

// Update feeds the latest price while a position is held and returns the exit
// reason, if any. Checks run in a fixed order and the first one that holds
// wins: strategy sell, confirmed decline, hard sell reached, confirmed hard
// stop. Once set, the reason is never replaced.
func (m *Machine) Update(price float64, strategySell bool) (domain.Optional[domain.SellReason], error) {
	if !m.HasPosition() {
		return domain.None[domain.SellReason](), fmt.Errorf("%w: update in %s", ErrInvalidTransition, m.state)
	}

	if price < m.trade.MinPrice {
		m.trade.MinPrice = price
	}
	if price > m.trade.MaxPrice {
		m.trade.MaxPrice = price
	}
	m.ring.Push(price)

	if m.trade.Reason.IsSet() {
		return m.trade.Reason, nil
	}

	var reason domain.SellReason
	switch {
	case strategySell:
		reason = domain.SellReasonStrategy
	case m.config.ExitOnDecline && m.ring.Declining():
		reason = domain.SellReasonDecline
	case m.trade.HardSell.IsSet() && price >= m.trade.HardSell.OrElse(0):
		reason = domain.SellReasonHardSell
	case m.HasConfirmedHardStop():
		reason = domain.SellReasonHardStop
	default:
		return domain.None[domain.SellReason](), nil
	}
	m.trade.Reason = domain.Some(reason)
	m.state = StateConfirmingExit
	return m.trade.Reason, nil
}

// ForceExit moves an open position to ConfirmingExit with reason, unless a
// reason is already set.
func (m *Machine) ForceExit(reason domain.SellReason) error {
	if !m.HasPosition() {
		return fmt.Errorf("%w: force exit in %s", ErrInvalidTransition, m.state)
	}
	if !m.trade.Reason.IsSet() {
		m.trade.Reason = domain.Some(reason)
	}
	m.state = StateConfirmingExit
	return nil
}

// RaiseStop ratchets the hard stop up to price. Lower prices are ignored.
// It reports whether the stop moved.
func (m *Machine) RaiseStop(price float64) bool {
	if !m.HasPosition() || price <= 0 {
		return false
	}
	if cur, ok := m.trade.HardStop.Get(); ok && price <= cur {
		return false
	}
	m.trade.HardStop = domain.Some(price)
	return true
}

// HasConfirmedHardStop reports whether every slot of the confirmation window
// holds a price at or below the hard stop.
func (m *Machine) HasConfirmedHardStop() bool {
	stop, ok := m.trade.HardStop.Get()
	if !ok {
		return false
	}
	return m.ring.AllAtOrBelow(stop)
}

// Close records the exit fill and classifies the trade.
func (m *Machine) Close(fill domain.Fill) (domain.Trade, error) {
	if m.state != StateConfirmingExit {
		return domain.Trade{}, fmt.Errorf("%w: close from %s", ErrInvalidTransition, m.state)
	}

	bought := decimal.NewFromFloat(m.trade.Entry.Price).Mul(decimal.NewFromFloat(m.trade.Entry.Quantity))
	sold := decimal.NewFromFloat(fill.Price).Mul(decimal.NewFromFloat(fill.Quantity))
	fees := decimal.NewFromFloat(m.trade.Entry.Fee).Add(decimal.NewFromFloat(fill.Fee))
	net := sold.Sub(fees)

	result := domain.ResultWin
	if bought.GreaterThan(net) {
		result = domain.ResultLose
	}

	m.trade.Exit = domain.Some(fill)
	m.trade.Result = domain.Some(result)
	m.trade.Profit = net.Sub(bought).InexactFloat64()
	m.trade.ClosedAt = fill.Time
	m.trade.Duration = fill.Time.Sub(m.trade.OpenedAt)
	m.trade.SellTries = m.sellAttempts
	if !m.trade.Reason.IsSet() {
		m.trade.Reason = domain.Some(domain.SellReasonUnknown)
	}
	m.state = StateClosed
	return m.trade, nil
}

// Restart clears every per-position field and returns to Idle.
func (m *Machine) Restart() error {
	if m.state != StateClosed {
		return fmt.Errorf("%w: restart from %s", ErrInvalidTransition, m.state)
	}
	m.trade = domain.Trade{}
	m.ring.Reset()
	m.buyAttempts = 0
	m.sellAttempts = 0
	m.state = StateIdle
	return nil
}

// RecordBuyAttempt counts one more cycle with the entry order unfilled.
func (m *Machine) RecordBuyAttempt() int {
	m.buyAttempts++
	return m.buyAttempts
}

// RecordSellAttempt counts one more cycle with the exit order unfilled.
func (m *Machine) RecordSellAttempt() int {
	m.sellAttempts++
	return m.sellAttempts
}

// BuyAttempts returns the unfilled entry cycles counted so far.
func (m *Machine) BuyAttempts() int { return m.buyAttempts }

// SellAttempts returns the unfilled exit cycles counted so far.
func (m *Machine) SellAttempts() int { return m.sellAttempts }

// BuyAttemptsExceeded reports whether the entry order outlived its attempt limit.
func (m *Machine) BuyAttemptsExceeded() bool {
	return m.config.MaxOrderAttempts > 0 && m.buyAttempts > m.config.MaxOrderAttempts
}

// SellAttemptsExceeded reports whether the exit order outlived its attempt limit.
func (m *Machine) SellAttemptsExceeded() bool {
	return m.config.MaxOrderAttempts > 0 && m.sellAttempts > m.config.MaxOrderAttempts
}

// ResetBuyAttempts clears the entry counter after the caller abandons an order.
func (m *Machine) ResetBuyAttempts() { m.buyAttempts = 0 }

// ResetSellAttempts clears the exit counter after the caller abandons an order.
func (m *Machine) ResetSellAttempts() { m.sellAttempts = 0 }

// View returns what a strategy may see of the open position.
func (m *Machine) View() domain.PositionView {
	return domain.PositionView{
		Product:    m.trade.Product,
		EntryPrice: m.trade.Entry.Price,
		Quantity:   m.trade.Entry.Quantity,
		MinPrice:   m.trade.MinPrice,
		MaxPrice:   m.trade.MaxPrice,
		HardStop:   m.trade.HardStop,
		OpenedAt:   m.trade.OpenedAt,
	}
}
