// Package postgres implements the storage interfaces on PostgreSQL (pgx/v5).
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
)

// TradeStore handles trade persistence
// ⭐ SSOT: analytics.trades 조회/적재는 여기서만
type TradeStore struct {
	pool *pgxpool.Pool
}

// Compile-time interface checks.
var (
	_ storage.TradeStore  = (*TradeStore)(nil)
	_ storage.TradeWriter = (*TradeStore)(nil)
)

// NewTradeStore creates a new trade store
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeColumns = `id, strategy_id, entry_time, exit_time, direction,
	entry_price, exit_price, quantity, pnl, commission`

// buildTradeQuery renders the filtered SELECT with positional arguments
func buildTradeQuery(filter storage.TradeFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(filter.StrategyIDs) > 0 {
		args = append(args, filter.StrategyIDs)
		where = append(where, fmt.Sprintf("strategy_id = ANY($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("exit_time >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("exit_time <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + tradeColumns + " FROM analytics.trades")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY exit_time, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return b.String(), args
}

// ListTrades returns trades matching filter ordered by exit_time, id
func (s *TradeStore) ListTrades(ctx context.Context, filter storage.TradeFilter) ([]contracts.Trade, error) {
	query, args := buildTradeQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]contracts.Trade, 0)
	for rows.Next() {
		var (
			t         contracts.Trade
			direction string
		)
		if err := rows.Scan(
			&t.ID, &t.StrategyID, &t.EntryTime, &t.ExitTime, &direction,
			&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.PnL, &t.Commission,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Direction = contracts.Direction(direction)
		t.EntryTime = t.EntryTime.UTC()
		t.ExitTime = t.ExitTime.UTC()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}

// ListStrategyIDs returns every strategy with trades, sorted
func (s *TradeStore) ListStrategyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT strategy_id FROM analytics.trades ORDER BY strategy_id`)
	if err != nil {
		return nil, fmt.Errorf("query strategy ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect strategy ids: %w", err)
	}
	return ids, nil
}

// InsertTrades bulk-inserts trades in one transaction; existing ids are skipped
func (s *TradeStore) InsertTrades(ctx context.Context, trades []contracts.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO analytics.trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, t := range trades {
		if t.ID == "" {
			return 0, fmt.Errorf("%w: trade without id", storage.ErrInvalidInput)
		}
		tag, err := tx.Exec(ctx, query,
			t.ID, t.StrategyID, t.EntryTime.UTC(), t.ExitTime.UTC(), string(t.Direction),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.Commission,
		)
		if err != nil {
			return 0, fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return inserted, nil
}
