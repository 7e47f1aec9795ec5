package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "전략 간 상관관계 분석",
	Long: `여러 전략의 일별 수익률 상관관계 행렬과 합산 포트폴리오 지표를 계산합니다.
공통 거래일 구간에서만 비교합니다.

Example:
  go run ./cmd/analytics correlate --file all_trades.json
  go run ./cmd/analytics correlate --strategies ES,NQ,CL`,
	RunE: runCorrelate,
}

var (
	correlateFile       string
	correlateStrategies []string
	correlateOutput     string
)

func init() {
	rootCmd.AddCommand(correlateCmd)

	correlateCmd.Flags().StringVar(&correlateFile, "file", "", "거래 JSON 파일 (strategy_id로 그룹)")
	correlateCmd.Flags().StringSliceVar(&correlateStrategies, "strategies", nil, "저장소의 전략 ID 목록 (비우면 전체)")
	correlateCmd.Flags().StringVar(&correlateOutput, "output", outputText, "출력 형식 (text, json)")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	if err := checkOutput(correlateOutput); err != nil {
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

	analyzer := audit.NewAnalyzer(log, nil)

	var portfolio *audit.PortfolioReport
	if correlateFile != "" {
		trades, err := audit.LoadTradesFile(correlateFile)
		if err != nil {
			return err
		}
		portfolio, err = analyzer.AnalyzeStrategies(ctx, trades, params)
		if err != nil {
			return err
		}
	} else {
		st, err := openStores(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		cache := redis.NewCache(redis.Disabled(), redis.KeyPrefix)
		svc := audit.NewReportService(analyzer, st.trades, nil, cache, log)
		portfolio, err = svc.Portfolio(ctx, correlateStrategies, params)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if correlateOutput == outputJSON {
		return writeJSON(out, portfolio)
	}

	printHeader(out, "Strategy Correlation", [][2]string{
		{"Overlap", portfolio.OverlapFrom.Format("2006-01-02") + " ~ " + portfolio.OverlapTo.Format("2006-01-02")},
		{"Strategies", strings.Join(portfolio.Correlation.Labels, ", ")},
	})

	labels := portfolio.Correlation.Labels
	widths := make([]int, len(labels)+1)
	columns := append([]string{""}, labels...)
	for i := range widths {
		widths[i] = 10
	}
	rows := make([][]string, 0, len(labels))
	for i, label := range labels {
		row := []string{label}
		for _, v := range portfolio.Correlation.Matrix[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
		}
		rows = append(rows, row)
	}
	printTable(out, columns, widths, rows)

	fmt.Fprintln(out)
	metricRows := make([][]string, 0, len(labels)+1)
	for _, label := range labels {
		m := portfolio.Strategies[label].Metrics
		metricRows = append(metricRows, metricRow(label, m.TotalReturnPct, m.SharpeRatio, m.MaxDrawdownPct))
	}
	if c := portfolio.Combined; c != nil {
		metricRows = append(metricRows, metricRow("COMBINED", c.Metrics.TotalReturnPct, c.Metrics.SharpeRatio, c.Metrics.MaxDrawdownPct))
	}
	printTable(out, []string{"STRATEGY", "RETURN %", "SHARPE", "MAX DD %"}, []int{12, 10, 8, 10}, metricRows)
	return nil
}

func metricRow(label string, ret, sharpe, dd float64) []string {
	return []string{
		label,
		strconv.FormatFloat(ret, 'f', 2, 64),
		strconv.FormatFloat(sharpe, 'f', 2, 64),
		strconv.FormatFloat(dd, 'f', 2, 64),
	}
}
