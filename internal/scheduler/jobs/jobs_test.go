package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/memory"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

type fakeRecomputer struct {
	calls int
	err   error
}

func (f *fakeRecomputer) RecomputeAll(ctx context.Context, params *analysisconfig.Params) (int, error) {
	f.calls++
	return 2, f.err
}

type fakeLocker struct {
	held     bool
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l.held {
		return func(context.Context) error { return nil }, false, nil
	}
	return func(context.Context) error { l.released++; return nil }, true, nil
}

func TestRecomputeJob(t *testing.T) {
	svc := &fakeRecomputer{}
	lock := &fakeLocker{}
	job := NewRecomputeJob(svc, lock, analysisconfig.Default(), "0 30 17 * * MON-FRI", logger.Nop())

	assert.Equal(t, "report_recompute", job.Name())
	assert.Equal(t, "0 30 17 * * MON-FRI", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, 1, lock.released)

	svc.err = errors.New("strategy NQ: boom")
	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 2, lock.released, "lock released on failure")

	lock.held = true
	require.NoError(t, job.Run(context.Background()), "held lock skips silently")
	assert.Equal(t, 2, svc.calls)
}

func TestRecomputeJobDisabledRedisLock(t *testing.T) {
	svc := &fakeRecomputer{}
	job := NewRecomputeJob(svc, redis.Disabled(), analysisconfig.Default(), "@daily", logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, svc.calls)
}

func TestQualityAuditJob(t *testing.T) {
	store := memory.NewStore()
	exit := time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)
	good := contracts.Trade{
		ID: "a", StrategyID: "ES", EntryTime: exit.Add(-time.Hour), ExitTime: exit,
		Direction: contracts.DirectionLong, EntryPrice: 500000, ExitPrice: 500100, Quantity: 1, PnL: 100,
	}
	bad := good
	bad.ID, bad.StrategyID, bad.ExitTime = "b", "NQ", good.EntryTime.Add(-time.Hour)
	_, err := store.InsertTrades(context.Background(), []contracts.Trade{good, bad})
	require.NoError(t, err)

	job := NewQualityAuditJob(store, quality.DefaultConfig(), logger.Nop())
	reports, err := job.Audit(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Zero(t, reports["ES"].InvalidTrades)
	assert.Equal(t, 1, reports["NQ"].InvalidTrades)
	assert.Equal(t, contracts.QualityPoor, reports["NQ"].Score)
}
