package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoSignalBot/internal/ports"
)

// Metrics holds the Prometheus collectors of the agent runtime.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec // labels: agent
	CycleErrors        *prometheus.CounterVec // labels: agent
	CycleDuration      prometheus.Histogram
	FetchFailures      *prometheus.CounterVec // labels: product
	StaleReuses        *prometheus.CounterVec // labels: product
	SignalsTotal       *prometheus.CounterVec // labels: agent, direction
	TradesTotal        *prometheus.CounterVec // labels: agent, result
	OrdersAbandoned    *prometheus.CounterVec // labels: agent, side
	StopTradingTrips   *prometheus.CounterVec // labels: agent
	Funds              *prometheus.GaugeVec   // labels: agent
	EventPublishErrors prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_cycles_total",
			Help: "Agent cycles run",
		}, []string{"agent"}),
		CycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_cycle_errors_total",
			Help: "Agent cycles that ended with an error",
		}, []string{"agent"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_cycle_duration_seconds",
			Help:    "Agent cycle latency including candle fetch and order calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_candle_fetch_failures_total",
			Help: "Failed candle fetches",
		}, []string{"product"}),
		StaleReuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_candle_stale_reuses_total",
			Help: "Cycles that reused a snapshot because another agent was refreshing it",
		}, []string{"product"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Buy and sell signals fired",
		}, []string{"agent", "direction"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_trades_total",
			Help: "Closed trades by result",
		}, []string{"agent", "result"}),
		OrdersAbandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_orders_abandoned_total",
			Help: "Orders cancelled after exceeding their attempt limit",
		}, []string{"agent", "side"}),
		StopTradingTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_stop_trading_trips_total",
			Help: "Circuit breaker trips",
		}, []string{"agent"}),
		Funds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_funds",
			Help: "Available quote funds per agent",
		}, []string{"agent"}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_event_publish_errors_total",
			Help: "Events a sink failed to deliver",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleErrors,
		m.CycleDuration,
		m.FetchFailures,
		m.StaleReuses,
		m.SignalsTotal,
		m.TradesTotal,
		m.OrdersAbandoned,
		m.StopTradingTrips,
		m.Funds,
		m.EventPublishErrors,
	)
	return m
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(agent string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(agent).Inc()
	m.CycleDuration.Observe(d.Seconds())
	if err != nil {
		m.CycleErrors.WithLabelValues(agent).Inc()
	}
}

// FetchFailed counts a failed candle fetch.
func (m *Metrics) FetchFailed(product string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(product).Inc()
}

// StaleReused counts a snapshot reuse caused by a concurrent refresh.
func (m *Metrics) StaleReused(product string) {
	if m == nil {
		return
	}
	m.StaleReuses.WithLabelValues(product).Inc()
}

// Signal counts a fired signal.
func (m *Metrics) Signal(agent, direction string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(agent, direction).Inc()
}

// TradeClosed counts a closed trade.
func (m *Metrics) TradeClosed(agent, result string) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(agent, result).Inc()
}

// OrderAbandoned counts an order cancelled after too many attempts.
func (m *Metrics) OrderAbandoned(agent, side string) {
	if m == nil {
		return
	}
	m.OrdersAbandoned.WithLabelValues(agent, side).Inc()
}

// StopTrading counts a circuit breaker trip.
func (m *Metrics) StopTrading(agent string) {
	if m == nil {
		return
	}
	m.StopTradingTrips.WithLabelValues(agent).Inc()
}

// SetFunds publishes an agent's available funds.
func (m *Metrics) SetFunds(agent string, funds float64) {
	if m == nil {
		return
	}
	m.Funds.WithLabelValues(agent).Set(funds)
}

// PublishFailed counts an undelivered event.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.EventPublishErrors.Inc()
}

// Server exposes /metrics and a trivial /healthz over HTTP.
type Server struct {
	addr   string
	srv    *http.Server
	logger ports.Logger
}

// NewServer creates a metrics server for the collectors gathered by g.
// A nil g serves the default gatherer.
func NewServer(addr string, g prometheus.Gatherer, logger ports.Logger) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info(context.Background(), "Metrics server listening", map[string]interface{}{"addr": s.addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), err, "Metrics server stopped")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
