package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"seqrview.backend/pkg/logger"
)

// Scheduler runs background jobs on cron schedules. A panicking job is
// recovered and logged; the schedule keeps running.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	l := cronLogger{}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l))),
	}
}

// Register adds fn under schedule, e.g. "@every 5m" or "*/5 * * * *"
func (s *Scheduler) Register(name, schedule string, fn func()) error {
	if _, err := s.cron.AddFunc(schedule, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	logger.Info(context.Background(), "Job scheduled", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Info(context.Background(), "Scheduler stopped")
	return nil
}

// Jobs reports how many schedules are registered
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
