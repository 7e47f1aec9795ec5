// Package jobs holds the scheduled jobs of the analytics worker.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// Recomputer refreshes every stored strategy's report
type Recomputer interface {
	RecomputeAll(ctx context.Context, params *analysisconfig.Params) (int, error)
}

var _ Recomputer = (*audit.ReportService)(nil)

// Locker hands out the cluster-wide job lock
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error)
}

var _ Locker = (*redis.Client)(nil)

// RecomputeJob recomputes and caches all strategy reports after the close
// ⭐ SSOT: 전략 리포트 일괄 재계산 스케줄은 이 Job에서만
type RecomputeJob struct {
	service  Recomputer
	locker   Locker
	params   analysisconfig.Params
	schedule string
	lockTTL  time.Duration
	logger   *logger.Logger
}

// NewRecomputeJob creates a new recompute job
func NewRecomputeJob(service Recomputer, locker Locker, params analysisconfig.Params, schedule string, log *logger.Logger) *RecomputeJob {
	return &RecomputeJob{
		service:  service,
		locker:   locker,
		params:   params,
		schedule: schedule,
		lockTTL:  30 * time.Minute,
		logger:   log,
	}
}

// Name returns the job name
func (j *RecomputeJob) Name() string {
	return "report_recompute"
}

// Schedule returns the cron schedule (weekdays after the CME close by default)
func (j *RecomputeJob) Schedule() string {
	return j.schedule
}

// Run executes the recompute. Another worker holding the lock is not an error.
func (j *RecomputeJob) Run(ctx context.Context) error {
	release, ok, err := j.locker.TryLock(ctx, j.Name(), j.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		j.logger.Info("Recompute already running on another worker, skipping")
		return nil
	}
	defer func() {
		// 취소된 ctx로는 해제 불가
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			j.logger.WithError(err).Warn("Failed to release recompute lock")
		}
	}()

	j.logger.Info("Starting scheduled report recompute")

	params := j.params
	done, err := j.service.RecomputeAll(ctx, &params)
	if err != nil {
		j.logger.WithField("recomputed", done).WithError(err).Warn("Some strategies failed to recompute")
		return fmt.Errorf("recompute: %w", err)
	}

	j.logger.WithField("recomputed", done).Info("Report recompute completed")
	return nil
}
