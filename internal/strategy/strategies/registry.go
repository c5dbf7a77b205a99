package strategies

import (
	"fmt"
	"slices"
	"sync"

	"cryptoSignalBot/internal/ports"
)

// Factory builds a strategy from its parameters.
type Factory func(params Params, logger ports.Logger) (ports.Strategy, error)

// Registry maps strategy codes to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CodeEMACross, NewEMACross)
	r.Register(CodeRSIReversion, NewRSIReversion)
	r.Register(CodeMACDDivergence, NewMACDDivergence)
	r.Register(CodeADXTrend, NewADXTrend)
	r.Register(CodeBollingerBounce, NewBollingerBounce)
	r.Register(CodeStochasticCross, NewStochasticCross)
	return r
}

// Register adds or replaces the factory for code.
func (r *Registry) Register(code string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[code] = f
}

// Build constructs a fresh strategy instance for code.
func (r *Registry) Build(code string, params Params, logger ports.Logger) (ports.Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[code]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, code)
	}
	return f(params, logger)
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.factories))
	for code := range r.factories {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
