package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "거래 데이터 품질 검사",
	Long: `거래별 유효성, P&L 이상치(z-score), 음수 equity 여부를 검사하고
excellent / good / fair / poor 등급을 매깁니다.

Example:
  go run ./cmd/analytics validate --file trades.json
  go run ./cmd/analytics validate --file trades.json --fail-on-poor`,
	RunE: runValidate,
}

var (
	validateFile       string
	validateOutput     string
	validateFailOnPoor bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFile, "file", "", "거래 JSON 파일")
	validateCmd.Flags().StringVar(&validateOutput, "output", outputText, "출력 형식 (text, json)")
	validateCmd.Flags().BoolVar(&validateFailOnPoor, "fail-on-poor", false, "poor 등급이면 실패 종료")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := checkOutput(validateOutput); err != nil {
		return err
	}

	cfg, log, err := initConfig()
	if err != nil {
		return err
	}
	params, err := initParams(cfg, log)
	if err != nil {
		return err
	}

	trades, err := audit.LoadTradesFile(validateFile)
	if err != nil {
		return err
	}

	report := quality.Assess(trades, params.QualityConfig())

	out := cmd.OutOrStdout()
	if validateOutput == outputJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printQuality(cmd, report)
	}

	if validateFailOnPoor && report.Score == contracts.QualityPoor {
		return fmt.Errorf("data quality is poor (%d invalid of %d trades)", report.InvalidTrades, report.TotalTrades)
	}
	return nil
}

func printQuality(cmd *cobra.Command, r contracts.DataQualityReport) {
	out := cmd.OutOrStdout()
	printHeader(out, "Data Quality", [][2]string{
		{"File", validateFile},
		{"Score", string(r.Score)},
		{"Trades", fmt.Sprintf("%d (valid %d, invalid %d)", r.TotalTrades, r.ValidTrades, r.InvalidTrades)},
		{"Issues", fmt.Sprintf("%d (warnings %d)", r.IssueCount, r.WarningCount)},
	})

	var rows [][]string
	for _, v := range r.Validations {
		for _, e := range v.Errors {
			rows = append(rows, []string{v.TradeID, "error", e})
		}
		for _, w := range v.Warnings {
			rows = append(rows, []string{v.TradeID, "warning", w})
		}
	}
	for _, o := range r.Outliers {
		rows = append(rows, []string{o.TradeID, "outlier", "z=" + strconv.FormatFloat(o.ZScore, 'f', 2, 64)})
	}
	if len(rows) > 0 {
		printTable(out, []string{"TRADE", "KIND", "DETAIL"}, []int{20, 8, 60}, rows)
	}

	if r.NegativeEquity.WentNegative {
		printWarning(out, fmt.Sprintf("Equity went negative (lowest %.2f)", r.NegativeEquity.LowestEquity))
	}
	if r.Score != contracts.QualityPoor {
		printSuccess(out, "Data quality: "+string(r.Score))
	}
}
