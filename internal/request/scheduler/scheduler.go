package scheduler

import (
	"context"
	"time"

	"github.com/assetdesk/ledger-service/internal/request"
	"go.uber.org/zap"
)

// Scheduler sweeps pending acquisition requests at a fixed tick and
// auto-declines any past their deadline. It never blocks request handlers:
// each sweep goes through the same CAS transition manual decisions use, so
// a human decision arriving first simply wins the race.
type Scheduler struct {
	uc       request.UseCase
	interval time.Duration
	logger   *zap.Logger
}

func New(uc request.UseCase, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		uc:       uc,
		interval: interval,
		logger:   log,
	}
}

// Start runs the sweep loop until the context is cancelled. Run it on its
// own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting request expiry scheduler", zap.Duration("tick", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping request expiry scheduler")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	resolved, err := s.uc.ExpireDue(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if resolved > 0 {
		s.logger.Info("expiry sweep resolved requests", zap.Int("count", resolved))
	}
}
