package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/migrations"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
			Env: map[string]string{
				"CLICKHOUSE_DB":       "test",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrations.RunClickhouse(ctx, conn))
	return conn
}

func TestBuildTradeQuery(t *testing.T) {
	q, args := buildTradeQuery(storage.TradeFilter{})
	assert.Equal(t, "SELECT "+tradeColumns+" FROM trades FINAL ORDER BY exit_time ASC, id ASC", q)
	assert.Empty(t, args)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	q, args = buildTradeQuery(storage.TradeFilter{StrategyIDs: []string{"ES"}, From: from, Limit: 10})
	assert.Contains(t, q, "WHERE strategy_id IN ? AND exit_time >= ?")
	assert.Contains(t, q, "LIMIT 10")
	assert.Equal(t, []any{[]string{"ES"}, from}, args)
}

func TestTradeStoreIntegration(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	store := NewTradeStore(conn)

	exit := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	mk := func(id, strategy string, day int) contracts.Trade {
		return contracts.Trade{
			ID: id, StrategyID: strategy,
			EntryTime: exit.AddDate(0, 0, day).Add(-time.Hour), ExitTime: exit.AddDate(0, 0, day),
			Direction: contracts.DirectionLong, EntryPrice: 500025, ExitPrice: 501000,
			Quantity: 1, PnL: 975, Commission: 250,
		}
	}

	n, err := store.InsertTrades(ctx, []contracts.Trade{mk("b", "ES", 1), mk("a", "ES", 0), mk("c", "NQ", 0)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.InsertTrades(ctx, []contracts.Trade{mk("a", "ES", 0), mk("d", "ES", 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trades, err := store.ListTrades(ctx, storage.TradeFilter{StrategyIDs: []string{"ES"}})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, mk("a", "ES", 0), trades[0])
	assert.Equal(t, "d", trades[2].ID)

	ids, err := store.ListStrategyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ES", "NQ"}, ids)
}
