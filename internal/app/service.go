package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cryptoSignalBot/internal/ports"
)

// Runner is one independent agent loop.
type Runner interface {
	ID() string
	Run(ctx context.Context) error
}

// TradingService runs every agent concurrently until shutdown.
type TradingService struct {
	logger ports.Logger
	agents []Runner
}

// NewTradingService creates a service over agents.
func NewTradingService(logger ports.Logger, agents ...Runner) (*TradingService, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: no agents configured", ports.ErrConfigurationError)
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if seen[a.ID()] {
			return nil, fmt.Errorf("%w: duplicate agent id %q", ports.ErrConfigurationError, a.ID())
		}
		seen[a.ID()] = true
	}
	return &TradingService{logger: logger, agents: agents}, nil
}

// Start runs the agents and blocks until SIGINT/SIGTERM, ctx cancellation, or
// every agent has stopped on its own.
func (s *TradingService) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info(ctx, "Starting trading service", map[string]interface{}{"agents": len(s.agents)})
	err := s.Run(ctx)
	s.logger.Info(context.WithoutCancel(ctx), "Trading service stopped")
	return err
}

// Run runs every agent in its own goroutine and waits for all of them.
func (s *TradingService) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range s.agents {
		g.Go(func() error {
			if err := a.Run(gctx); err != nil {
				return fmt.Errorf("agent %s: %w", a.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
