package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/scheduler"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "백그라운드 워커 (스케줄러)",
	Long: `스케줄에 따라 전략 리포트를 재계산하고 데이터 품질을 점검합니다.

등록되는 작업:
- report_recompute: RECOMPUTE_SCHEDULE (기본 평일 17:30, Redis lock으로 단일 실행)
- trade_quality_audit: 매일 오전 6시

Example:
  go run ./cmd/analytics worker
  go run ./cmd/analytics worker --once report_recompute
  go run ./cmd/analytics worker --metrics-addr :9102`,
	RunE: runWorker,
}

var (
	workerOnce        string
	workerMetricsAddr string
)

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVar(&workerOnce, "once", "", "지정한 작업을 한 번 실행하고 종료")
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", "", "Prometheus /metrics 주소 (비우면 비활성)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := initConfig()
	if err != nil {
		return err
	}
	params, err := initParams(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	svcs, err := initServices(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	sched := scheduler.New(log, scheduler.WithMetrics(svcs.metrics), scheduler.WithRetry(2, time.Minute))
	if err := sched.AddJob(jobs.NewRecomputeJob(svcs.service, svcs.redis, *params, cfg.Scheduler.RecomputeSchedule, log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewQualityAuditJob(svcs.stores.trades, params.QualityConfig(), log)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Run a single job and exit
	if workerOnce != "" {
		result, err := sched.RunNow(workerOnce)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("job %s failed: %s", workerOnce, result.Error)
		}
		printSuccess(out, fmt.Sprintf("Job %s completed in %s", workerOnce, result.Duration.Round(time.Millisecond)))
		return nil
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("SCHEDULER_ENABLED=false: worker has nothing to do")
		return nil
	}

	if workerMetricsAddr != "" {
		srv := &http.Server{
			Addr:              workerMetricsAddr,
			Handler:           observability.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sched.Start()

	printSuccess(out, "Scheduler started")
	fmt.Fprintln(out, "Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", jobName)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	<-ctx.Done()

	sched.Stop()
	printJobStats(cmd, sched.GetJobStats())
	return nil
}

func printJobStats(cmd *cobra.Command, stats map[string]scheduler.JobStats) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(stats))
	for _, name := range sortedKeys(stats) {
		s := stats[name]
		last := "-"
		if s.LastRun != nil {
			last = s.LastRun.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", s.TotalRuns),
			fmt.Sprintf("%.1f%%", s.SuccessRate*100),
			last,
		})
	}
	printTable(out, []string{"JOB", "RUNS", "SUCCESS", "LAST RUN"}, []int{22, 6, 8, 20}, rows)
}
