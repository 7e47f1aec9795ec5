package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
)

// ReportRunStore persists report summaries in analytics.report_runs
// NUMERIC 컬럼은 pgx-shopspring-decimal 코덱으로 decimal.Decimal과 매핑
type ReportRunStore struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ storage.ReportRunStore = (*ReportRunStore)(nil)

// NewReportRunStore creates a new report run store
func NewReportRunStore(pool *pgxpool.Pool) *ReportRunStore {
	return &ReportRunStore{pool: pool}
}

const reportRunColumns = `id, strategy_id, params_hash, created_at, trade_count, quality_score,
	starting_capital, final_equity, total_pnl,
	total_return_pct, sharpe_ratio, sortino_ratio, max_drawdown_pct, report`

// SaveRun inserts a run (re-saving the same id replaces it)
func (s *ReportRunStore) SaveRun(ctx context.Context, run *storage.ReportRun) error {
	if run == nil || run.ID == "" || run.StrategyID == "" {
		return fmt.Errorf("%w: report run needs id and strategy_id", storage.ErrInvalidInput)
	}

	report := run.Report
	if len(report) == 0 {
		report = []byte("{}")
	}

	query := `
		INSERT INTO analytics.report_runs (` + reportRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			trade_count = EXCLUDED.trade_count,
			quality_score = EXCLUDED.quality_score,
			final_equity = EXCLUDED.final_equity,
			total_pnl = EXCLUDED.total_pnl,
			report = EXCLUDED.report
	`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.StrategyID, run.ParamsHash, run.CreatedAt, run.TradeCount, string(run.QualityScore),
		run.StartingCapital, run.FinalEquity, run.TotalPnL,
		run.TotalReturnPct, run.SharpeRatio, run.SortinoRatio, run.MaxDrawdownPct, report,
	)
	if err != nil {
		return fmt.Errorf("failed to save report run: %w", err)
	}

	return nil
}

// LatestRun returns the newest run of a strategy
func (s *ReportRunStore) LatestRun(ctx context.Context, strategyID string) (*storage.ReportRun, error) {
	runs, err := s.ListRuns(ctx, strategyID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs of a strategy, newest first (limit <= 0 means all)
func (s *ReportRunStore) ListRuns(ctx context.Context, strategyID string, limit int) ([]storage.ReportRun, error) {
	query := `SELECT ` + reportRunColumns + `
		FROM analytics.report_runs
		WHERE strategy_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{strategyID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query report runs: %w", err)
	}
	defer rows.Close()

	runs := make([]storage.ReportRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (storage.ReportRun, error) {
	var (
		run     storage.ReportRun
		score   string
		payload []byte
	)
	err := row.Scan(
		&run.ID, &run.StrategyID, &run.ParamsHash, &run.CreatedAt, &run.TradeCount, &score,
		&run.StartingCapital, &run.FinalEquity, &run.TotalPnL,
		&run.TotalReturnPct, &run.SharpeRatio, &run.SortinoRatio, &run.MaxDrawdownPct, &payload,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return run, storage.ErrNotFound
	}
	if err != nil {
		return run, fmt.Errorf("scan report run: %w", err)
	}
	run.QualityScore = contracts.QualityScore(score)
	run.CreatedAt = run.CreatedAt.UTC()
	run.Report = payload
	return run, nil
}
