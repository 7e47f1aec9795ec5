package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/benchmark"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/httputil"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "성과 리포트 생성",
	Long: `거래 내역으로 전체 성과 리포트를 계산합니다.

입력:
  --file      JSON 파일 (배열 또는 {"trades": [...]})
  --strategy  저장소(PostgreSQL/ClickHouse)의 전략 ID

리포트 내용:
- Equity curve (trade/daily), 성과 지표, trade 통계
- Underwater curve, major drawdown, risk of ruin
- Rolling window, 수익률 분포, 데이터 품질
- 선택: benchmark 비교 (--benchmark 파일 또는 URL)

Example:
  go run ./cmd/analytics report --file trades.json
  go run ./cmd/analytics report --strategy ES --from 2024-01-01
  go run ./cmd/analytics report --file trades.json --benchmark spx.json --output json`,
	RunE: runReport,
}

var (
	reportFile        string
	reportStrategy    string
	reportFrom        string
	reportTo          string
	reportBenchmark   string
	reportOutput      string
	reportVisibleFrom string
	reportVisibleTo   string
	reportSave        bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFile, "file", "", "거래 JSON 파일")
	reportCmd.Flags().StringVar(&reportStrategy, "strategy", "", "저장소의 전략 ID")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "exit_time 시작 (YYYY-MM-DD, --strategy 전용)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "exit_time 종료 (YYYY-MM-DD, --strategy 전용)")
	reportCmd.Flags().StringVar(&reportBenchmark, "benchmark", "", "benchmark 종가 JSON (파일 경로 또는 http(s) URL)")
	reportCmd.Flags().StringVar(&reportOutput, "output", outputText, "출력 형식 (text, json)")
	reportCmd.Flags().StringVar(&reportVisibleFrom, "visible-from", "", "rolling 구간 표시 시작 (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportVisibleTo, "visible-to", "", "rolling 구간 표시 종료 (YYYY-MM-DD)")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "리포트 요약을 report_runs에 저장 (--strategy 전용)")
	reportCmd.MarkFlagsMutuallyExclusive("file", "strategy")
	reportCmd.MarkFlagsOneRequired("file", "strategy")
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := checkOutput(reportOutput); err != nil {
		return err
	}
	ctx := cmd.Context()

	cfg, log, err := initConfig()
	if err != nil {
		return err
	}
	params, err := initParams(cfg, log)
	if err != nil {
		return err
	}

	opts := audit.Options{StrategyID: reportStrategy}
	if opts.Visible.From, err = parseDateFlag("visible-from", reportVisibleFrom); err != nil {
		return err
	}
	if opts.Visible.To, err = parseDateFlag("visible-to", reportVisibleTo); err != nil {
		return err
	}
	if reportBenchmark != "" {
		series, err := benchmark.Load(ctx, reportBenchmark, httputil.New(log))
		if err != nil {
			return err
		}
		opts.Benchmark = series
	}

	// 1. Load trades
	var (
		trades []contracts.Trade
		st     *stores
	)
	if reportFile != "" {
		if trades, err = audit.LoadTradesFile(reportFile); err != nil {
			return err
		}
		if opts.StrategyID == "" && len(trades) > 0 {
			opts.StrategyID = trades[0].StrategyID
		}
	} else {
		st, err = openStores(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := storage.TradeFilter{StrategyIDs: []string{reportStrategy}}
		if filter.From, err = parseDateFlag("from", reportFrom); err != nil {
			return err
		}
		if filter.To, err = parseDateFlag("to", reportTo); err != nil {
			return err
		}
		if !filter.To.IsZero() {
			// 종료일 포함
			filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
		}
		if trades, err = st.trades.ListTrades(ctx, filter); err != nil {
			return fmt.Errorf("load trades: %w", err)
		}
	}

	// 2. Analyze
	analyzer := audit.NewAnalyzer(log, nil)
	report, err := analyzer.Analyze(ctx, trades, params, opts)
	if err != nil {
		return err
	}

	// 3. Persist (optional)
	if reportSave && st != nil {
		run, err := audit.ToRun(report)
		if err != nil {
			return err
		}
		if err := st.runs.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save report run: %w", err)
		}
		log.WithField("report_id", report.ID).Info("Report run saved")
	}

	// 4. Output
	out := cmd.OutOrStdout()
	if reportOutput == outputJSON {
		return writeJSON(out, report)
	}
	fmt.Fprint(out, report.ToSummary())
	return nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}
