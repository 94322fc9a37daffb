package supervisor

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/metrics"
)

// RunService adapts a component with a blocking Run(ctx) error method to
// suture.Service.
type RunService struct {
	name string
	run  func(ctx context.Context) error
}

func NewRunService(name string, run func(ctx context.Context) error) *RunService {
	return &RunService{name: name, run: run}
}

func (s *RunService) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// String names the service in supervisor events.
func (s *RunService) String() string {
	return s.name
}

// Sweep calls fn once on start and then every interval. A failed run is
// logged and counted; the next tick tries again.
type Sweep struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) (int, error)
	logger   logging.Logger
}

func NewSweep(name string, interval time.Duration, fn func(ctx context.Context) (int, error), l logging.Logger) *Sweep {
	return &Sweep{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   l.With("module", "sweep", "sweep", name),
	}
}

func (s *Sweep) runOnce(ctx context.Context) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
	n, err := s.fn(ctx)
	if ctx.Err() != nil {
		return
	}
	metrics.SweepRuns.WithLabelValues(s.name, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "affected", n, "error", err)
		return
	}
	s.logger.Info(ctx, "sweep finished", "affected", n)
}

func (s *Sweep) Serve(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweep) String() string {
	return s.name
}
