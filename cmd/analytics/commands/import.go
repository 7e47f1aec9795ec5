package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "거래 내역을 저장소에 적재",
	Long: `JSON 거래 파일을 TRADES_SOURCE 저장소(PostgreSQL 또는 ClickHouse)에 적재합니다.
이미 존재하는 trade id는 건너뜁니다.

Example:
  go run ./cmd/analytics import --file trades.json
  go run ./cmd/analytics import --file trades.json --strategy ES --skip-invalid`,
	RunE: runImport,
}

var (
	importFile        string
	importStrategy    string
	importSkipInvalid bool
	importBatchSize   int
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "거래 JSON 파일")
	importCmd.Flags().StringVar(&importStrategy, "strategy", "", "strategy_id가 비어 있는 거래에 지정할 ID")
	importCmd.Flags().BoolVar(&importSkipInvalid, "skip-invalid", false, "유효성 검사 실패 거래 제외")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 5000, "배치당 거래 수")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importBatchSize <= 0 {
		return fmt.Errorf("--batch-size must be > 0")
	}
	ctx := cmd.Context()

	cfg, log, err := initConfig()
	if err != nil {
		return err
	}

	trades, err := audit.LoadTradesFile(importFile)
	if err != nil {
		return err
	}

	var missingStrategy int
	for i := range trades {
		if trades[i].StrategyID == "" {
			trades[i].StrategyID = importStrategy
		}
		if trades[i].StrategyID == "" {
			missingStrategy++
		}
	}
	if missingStrategy > 0 {
		return fmt.Errorf("%d trades have no strategy_id (use --strategy)", missingStrategy)
	}

	skipped := 0
	if importSkipInvalid {
		valid := make([]contracts.Trade, 0, len(trades))
		for _, t := range trades {
			if quality.ValidateTrade(t).IsValid {
				valid = append(valid, t)
				continue
			}
			skipped++
		}
		trades = valid
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	inserted := 0
	for start := 0; start < len(trades); start += importBatchSize {
		end := start + importBatchSize
		if end > len(trades) {
			end = len(trades)
		}
		n, err := st.writer.InsertTrades(ctx, trades[start:end])
		if err != nil {
			return fmt.Errorf("insert batch %d-%d: %w", start, end, err)
		}
		inserted += n
	}

	log.WithFields(map[string]interface{}{
		"file":     importFile,
		"read":     len(trades) + skipped,
		"inserted": inserted,
		"existing": len(trades) - inserted,
		"invalid":  skipped,
	}).Info("Trades imported")

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Imported %d trades (%d already present, %d invalid skipped)",
		inserted, len(trades)-inserted, skipped))
	return nil
}
