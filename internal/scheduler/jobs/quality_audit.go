package jobs

import (
	"context"
	"fmt"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// QualityAuditJob grades the stored trade data of every strategy
// Poor 등급은 경고 로그만 남김 (리포트 계산은 막지 않음)
type QualityAuditJob struct {
	trades storage.TradeStore
	cfg    quality.Config
	logger *logger.Logger
}

// NewQualityAuditJob creates a new quality audit job
func NewQualityAuditJob(trades storage.TradeStore, cfg quality.Config, log *logger.Logger) *QualityAuditJob {
	return &QualityAuditJob{
		trades: trades,
		cfg:    cfg,
		logger: log,
	}
}

// Name returns the job name
func (j *QualityAuditJob) Name() string {
	return "trade_quality_audit"
}

// Schedule returns the cron schedule (every day at 6 AM)
func (j *QualityAuditJob) Schedule() string {
	return "0 0 6 * * *" // 6 AM daily (with seconds)
}

// Run executes the audit and returns the per-strategy grades
func (j *QualityAuditJob) Run(ctx context.Context) error {
	_, err := j.Audit(ctx)
	return err
}

// Audit grades each strategy's trades
func (j *QualityAuditJob) Audit(ctx context.Context) (map[string]contracts.DataQualityReport, error) {
	ids, err := j.trades.ListStrategyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}

	out := make(map[string]contracts.DataQualityReport, len(ids))
	for _, id := range ids {
		trades, err := j.trades.ListTrades(ctx, storage.TradeFilter{StrategyIDs: []string{id}})
		if err != nil {
			return out, fmt.Errorf("strategy %s: %w", id, err)
		}

		report := quality.Assess(trades, j.cfg)
		out[id] = report

		log := j.logger.WithStrategy(id).WithFields(map[string]interface{}{
			"score":          report.Score,
			"total_trades":   report.TotalTrades,
			"invalid_trades": report.InvalidTrades,
			"outliers":       len(report.Outliers),
		})
		if report.Score == contracts.QualityPoor {
			log.Warn("Trade data quality is poor")
			continue
		}
		log.Debug("Trade data quality checked")
	}

	return out, nil
}
