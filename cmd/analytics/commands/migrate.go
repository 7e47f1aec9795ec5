package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/clickhouse"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/migrations"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "스키마 마이그레이션 적용",
	Long: `내장된 SQL 마이그레이션을 적용합니다. 모든 파일은 idempotent라 재실행해도 안전합니다.

- PostgreSQL: analytics.trades, analytics.report_runs
- ClickHouse (TRADES_SOURCE=clickhouse 또는 --clickhouse): trades

Example:
  go run ./cmd/analytics migrate
  go run ./cmd/analytics migrate --clickhouse`,
	RunE: runMigrate,
}

var migrateClickhouse bool

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateClickhouse, "clickhouse", false, "ClickHouse 스키마도 적용 (CLICKHOUSE_DSN)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := initConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := migrations.RunPostgres(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	log.Info("PostgreSQL migrations applied")
	printSuccess(out, "PostgreSQL schema up to date")

	if !migrateClickhouse && cfg.Storage.TradeSource != "clickhouse" {
		return nil
	}
	if cfg.Storage.ClickHouseDSN == "" {
		return fmt.Errorf("CLICKHOUSE_DSN is required for ClickHouse migrations")
	}

	conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := migrations.RunClickhouse(ctx, conn); err != nil {
		return fmt.Errorf("migrate clickhouse: %w", err)
	}
	log.Info("ClickHouse migrations applied")
	printSuccess(out, "ClickHouse schema up to date")
	return nil
}
