package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/calendar"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "거래일 캘린더 조회",
	Long: `일별 equity 집계에 쓰는 거래일 캘린더(주말 + 미국 거래소 휴장일)를 조회합니다.

Subcommands:
  check     - 특정 날짜가 거래일인지 확인
  holidays  - 연도별 휴장일 목록
  between   - 구간의 거래일 수 (양 끝 포함)

Example:
  go run ./cmd/analytics calendar check 2024-07-04
  go run ./cmd/analytics calendar holidays 2025
  go run ./cmd/analytics calendar between 2024-01-01 2024-12-31`,
}

var (
	calendarCheckCmd = &cobra.Command{
		Use:   "check [date]",
		Short: "거래일 여부 확인",
		Args:  cobra.ExactArgs(1),
		RunE:  runCalendarCheck,
	}

	calendarHolidaysCmd = &cobra.Command{
		Use:   "holidays [year]",
		Short: "휴장일 목록",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCalendarHolidays,
	}

	calendarBetweenCmd = &cobra.Command{
		Use:   "between [start] [end]",
		Short: "구간 거래일 수",
		Args:  cobra.ExactArgs(2),
		RunE:  runCalendarBetween,
	}
)

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarCheckCmd)
	calendarCmd.AddCommand(calendarHolidaysCmd)
	calendarCmd.AddCommand(calendarBetweenCmd)
}

func runCalendarCheck(cmd *cobra.Command, args []string) error {
	day, err := parseDateFlag("date", args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case calendar.IsTradingDay(day):
		fmt.Fprintf(out, "%s is a trading day\n", args[0])
	case calendar.IsHoliday(day):
		fmt.Fprintf(out, "%s is an exchange holiday\n", args[0])
	default:
		fmt.Fprintf(out, "%s is a weekend\n", args[0])
	}
	fmt.Fprintf(out, "  previous trading day: %s\n", calendar.PreviousTradingDay(day).Format("2006-01-02"))
	fmt.Fprintf(out, "  next trading day    : %s\n", calendar.NextTradingDay(day).Format("2006-01-02"))
	return nil
}

func runCalendarHolidays(cmd *cobra.Command, args []string) error {
	year := time.Now().UTC().Year()
	if len(args) == 1 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		year = y
	}

	out := cmd.OutOrStdout()
	first, last := calendar.SupportedRange()
	days := calendar.Holidays(year)
	if len(days) == 0 {
		printWarning(out, fmt.Sprintf("No holiday table for %d (supported %d-%d): weekends only", year, first, last))
		return nil
	}

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Format("2006-01-02"), d.Weekday().String()})
	}
	printTable(out, []string{"DATE", "WEEKDAY"}, []int{12, 10}, rows)
	return nil
}

func runCalendarBetween(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag("start", args[0])
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d trading days in [%s, %s]\n",
		calendar.TradingDaysBetween(start, end), args[0], args[1])
	return nil
}
