package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/assistant"
)

// Scheduler recomputes daily statistics on a cron schedule. The stats
// operation is idempotent, so overlapping or repeated runs on the same day
// are harmless.
type Scheduler struct {
	assistant *assistant.Service
	schedule  string
	logger    *zap.Logger
	cron      *cron.Cron
}

func New(svc *assistant.Service, schedule string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		assistant: svc,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start runs the stats job once immediately, then on every cron tick until
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.run(ctx)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("registering stats schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Stats scheduler started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.assistant.UpdateDailyStats(ctx); err != nil {
		s.logger.Error("Scheduled stats update failed", zap.Error(err))
	}
}

// Stop halts the cron loop; running jobs finish on their own.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
