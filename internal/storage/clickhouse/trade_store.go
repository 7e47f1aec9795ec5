package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
)

// TradeStore reads and bulk-loads the trades table.
type TradeStore struct {
	conn *Conn
}

// Compile-time interface checks.
var (
	_ storage.TradeStore  = (*TradeStore)(nil)
	_ storage.TradeWriter = (*TradeStore)(nil)
)

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

const tradeColumns = `id, strategy_id, entry_time, exit_time, direction,
	entry_price, exit_price, quantity, pnl, commission`

// buildTradeQuery renders the filtered SELECT with ? placeholders.
// FINAL collapses rows re-loaded under the same key.
func buildTradeQuery(filter storage.TradeFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(filter.StrategyIDs) > 0 {
		where = append(where, "strategy_id IN ?")
		args = append(args, filter.StrategyIDs)
	}
	if !filter.From.IsZero() {
		where = append(where, "exit_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "exit_time <= ?")
		args = append(args, filter.To.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + tradeColumns + " FROM trades FINAL")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY exit_time ASC, id ASC")
	if filter.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", filter.Limit)
	}
	return b.String(), args
}

// ListTrades returns trades matching filter, ordered by exit_time then id.
func (s *TradeStore) ListTrades(ctx context.Context, filter storage.TradeFilter) ([]contracts.Trade, error) {
	query, args := buildTradeQuery(filter)

	rows, err := s.conn.Query(ctx, query, args...)
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

// ListStrategyIDs returns every strategy with trades, sorted.
func (s *TradeStore) ListStrategyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT strategy_id FROM trades ORDER BY strategy_id`)
	if err != nil {
		return nil, fmt.Errorf("query strategy ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan strategy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertTrades appends trades in one batch. MergeTree does not enforce
// uniqueness, so ids already present are filtered out first.
func (s *TradeStore) InsertTrades(ctx context.Context, trades []contracts.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(trades))
	for _, t := range trades {
		if t.ID == "" {
			return 0, fmt.Errorf("%w: trade without id", storage.ErrInvalidInput)
		}
		ids = append(ids, t.ID)
	}

	existing, err := s.existingIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing ids: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trades (`+tradeColumns+`)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	inserted := 0
	for _, t := range trades {
		if _, ok := existing[t.ID]; ok {
			continue
		}
		existing[t.ID] = struct{}{} // 배치 내 중복도 한 번만
		if err := batch.Append(
			t.ID, t.StrategyID, t.EntryTime.UTC(), t.ExitTime.UTC(), string(t.Direction),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.PnL, t.Commission,
		); err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("append to batch: %w", err)
		}
		inserted++
	}

	if inserted == 0 {
		_ = batch.Abort()
		return 0, nil
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	return inserted, nil
}

func (s *TradeStore) existingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT id FROM trades WHERE id IN ?`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}
