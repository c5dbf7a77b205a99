package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/trade"
)

var (
	testBase  = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	fillClock = testBase.Add(24 * time.Hour)
)

// mockLogger records messages per level.
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) warns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnMsgs...)
}

func (m *mockLogger) errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errorMsgs...)
}

// scriptedStrategy returns whatever its callbacks decide for the current history length.
type scriptedStrategy struct {
	warmup    int
	seen      int
	updateErr error
	failOnce  error // Returned by the next Update only, after consuming half the batch
	resets    int
	buy       func(n int) domain.Signal
	sell      func(n int, pos domain.PositionView) domain.Signal
	buyCalls  int
	sellCalls int
}

func (s *scriptedStrategy) Name() string           { return "scripted" }
func (s *scriptedStrategy) WarmupRequirement() int { return s.warmup }

func (s *scriptedStrategy) Update(history []domain.Candle, newCount int) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if err := s.failOnce; err != nil {
		s.failOnce = nil
		s.seen += newCount / 2
		return err
	}
	s.seen += newCount
	return nil
}

func (s *scriptedStrategy) Reset() {
	s.resets++
	s.seen = 0
}

func (s *scriptedStrategy) EvaluateBuy(ctx context.Context, candles []domain.Candle) (domain.Signal, error) {
	s.buyCalls++
	if s.buy == nil {
		return domain.NoSignal("idle"), nil
	}
	return s.buy(s.seen), nil
}

func (s *scriptedStrategy) EvaluateSell(ctx context.Context, candles []domain.Candle, pos domain.PositionView) (domain.Signal, error) {
	s.sellCalls++
	if s.sell == nil {
		return domain.NoSignal("hold"), nil
	}
	return s.sell(s.seen, pos), nil
}

// stubFeed serves a growing candle list.
type stubFeed struct {
	candles []domain.Candle
	err     error
}

func (f *stubFeed) Candles(ctx context.Context, product string, granularity time.Duration) (Snapshot, error) {
	if f.err != nil {
		return Snapshot{}, f.err
	}
	return Snapshot{Candles: f.candles}, nil
}

func (f *stubFeed) push(closes ...float64) {
	for _, c := range closes {
		ts := testBase.Add(time.Duration(len(f.candles)) * time.Minute)
		f.candles = append(f.candles, domain.Candle{Timestamp: ts, Open: c, High: c, Low: c, Close: c, Volume: 1})
	}
}

// fakeExecutor fills at the limit price, either on placement or when told to.
type fakeExecutor struct {
	fillOnPlace bool
	placeStatus domain.OrderStatus // Status forced on placement when set
	placeErrs   []error            // Consumed one per placement
	getErr      error
	feeRate     float64
	seq         int
	orders      map[string]*ports.OrderHandle
	placed      []ports.OrderHandle
	cancelled   []string
}

func newFakeExecutor(fillOnPlace bool) *fakeExecutor {
	return &fakeExecutor{fillOnPlace: fillOnPlace, orders: make(map[string]*ports.OrderHandle)}
}

func (e *fakeExecutor) PlaceLimitOrder(ctx context.Context, side domain.OrderSide, product string, price, quantity float64) (*ports.OrderHandle, error) {
	if len(e.placeErrs) > 0 {
		err := e.placeErrs[0]
		e.placeErrs = e.placeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	e.seq++
	h := &ports.OrderHandle{
		ID:         fmt.Sprintf("O-%d", e.seq),
		Product:    product,
		Side:       side,
		LimitPrice: price,
		Quantity:   quantity,
		Status:     domain.OrderPending,
	}
	e.orders[h.ID] = h
	switch {
	case e.placeStatus != "":
		h.Status = e.placeStatus
	case e.fillOnPlace:
		e.fill(h.ID)
	}
	e.placed = append(e.placed, *h)
	cp := *h
	return &cp, nil
}

func (e *fakeExecutor) fill(id string) {
	h := e.orders[id]
	h.Status = domain.OrderFilled
	h.FilledSize = h.Quantity
	h.Price = h.LimitPrice
	h.Fees = h.LimitPrice * h.Quantity * e.feeRate
	h.UpdatedAt = fillClock
}

func (e *fakeExecutor) GetOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	if e.getErr != nil {
		return nil, e.getErr
	}
	h, ok := e.orders[order.ID]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	cp := *h
	return &cp, nil
}

func (e *fakeExecutor) CancelOrder(ctx context.Context, order *ports.OrderHandle) (*ports.OrderHandle, error) {
	h, ok := e.orders[order.ID]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	if h.Status == domain.OrderPending {
		h.Status = domain.OrderCancelled
	}
	e.cancelled = append(e.cancelled, h.ID)
	cp := *h
	return &cp, nil
}

// recordingSink keeps every published event.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind()
	}
	return out
}

func (s *recordingSink) last() domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

var errBoom = errors.New("boom")

type agentFixture struct {
	agent    *Agent
	strategy *scriptedStrategy
	feed     *stubFeed
	executor *fakeExecutor
	sink     *recordingSink
	logger   *mockLogger
}

func baseAgentConfig() AgentConfig {
	return AgentConfig{
		ID:           "a1",
		Product:      "ETHUSDT",
		Granularity:  time.Minute,
		Interval:     5 * time.Millisecond,
		InitialFunds: 1000,
		Trade:        trade.Config{RingSize: 2},
		Risk:         risk.Config{PositionSizePercent: 1},
	}
}

func newFixture(t *testing.T, strat *scriptedStrategy, exec *fakeExecutor, mutate func(*AgentConfig)) *agentFixture {
	t.Helper()
	cfg := baseAgentConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &agentFixture{
		strategy: strat,
		feed:     &stubFeed{},
		executor: exec,
		sink:     &recordingSink{},
		logger:   &mockLogger{},
	}
	agent, err := NewAgent(cfg, AgentDeps{
		Strategy: strat,
		Feed:     f.feed,
		Executor: exec,
		Sink:     f.sink,
		Logger:   f.logger,
		Clock:    func() time.Time { return fillClock },
	})
	require.NoError(t, err)
	f.agent = agent
	return f
}

// buyAt returns a buy callback firing once the history reaches n candles.
func buyAt(n int, stop float64) func(int) domain.Signal {
	return func(seen int) domain.Signal {
		if seen == n {
			return domain.BuySignal("entry").WithStop(stop)
		}
		return domain.NoSignal("wait")
	}
}
