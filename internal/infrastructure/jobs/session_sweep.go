package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"seqrview.backend/pkg/logger"
)

// SessionSweeper deletes KYC sessions whose deadline has passed
type SessionSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweepJob removes expired KYC sessions on the scheduler's cadence
type SessionSweepJob struct {
	sweeper SessionSweeper
	timeout time.Duration
	now     func() time.Time
}

func NewSessionSweepJob(sweeper SessionSweeper) *SessionSweepJob {
	return &SessionSweepJob{
		sweeper: sweeper,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
}

// Run is the cron entry point
func (j *SessionSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	j.sweep(ctx)
}

func (j *SessionSweepJob) sweep(ctx context.Context) int64 {
	n, err := j.sweeper.SweepExpired(ctx, j.now())
	if err != nil {
		logger.Error(ctx, "KYC session sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.Info(ctx, "Expired KYC sessions swept", zap.Int64("count", n))
	}
	return n
}
