package migrations

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ stmts []string }

func (r *recorder) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.stmts = append(r.stmts, sql)
	return pgconn.CommandTag{}, nil
}

type chRecorder struct{ stmts []string }

func (r *chRecorder) Exec(_ context.Context, query string, _ ...any) error {
	r.stmts = append(r.stmts, query)
	return nil
}

func TestRunPostgresAppliesFilesInOrder(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, RunPostgres(context.Background(), rec))

	require.Len(t, rec.stmts, 2)
	assert.Contains(t, rec.stmts[0], "analytics.trades")
	assert.Contains(t, rec.stmts[1], "analytics.report_runs")
}

func TestRunClickhouseSplitsStatements(t *testing.T) {
	rec := &chRecorder{}
	require.NoError(t, RunClickhouse(context.Background(), rec))

	require.Len(t, rec.stmts, 1)
	assert.True(t, strings.HasPrefix(rec.stmts[0], "CREATE TABLE IF NOT EXISTS trades"))
	assert.NotContains(t, rec.stmts[0], "--", "comment lines are dropped")
}

func TestSplitStatements(t *testing.T) {
	in := "-- header\nCREATE TABLE a (x Int8);\n\nCREATE TABLE b (y Int8);\n"
	assert.Equal(t, []string{"CREATE TABLE a (x Int8)", "CREATE TABLE b (y Int8)"}, splitStatements(in))
	assert.Empty(t, splitStatements("-- only a comment\n"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b';"))
}
