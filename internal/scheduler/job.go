package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job; ctx is cancelled when the scheduler stops
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds first
	// Examples: "0 30 17 * * MON-FRI" (weekdays 17:30), "@hourly"
	Schedule() string
}

// JobResult is the outcome of one execution, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit bounds the results kept per job
const historyLimit = 100

// JobHistory keeps the most recent results of a job, oldest first.
// Not safe for concurrent use; the Scheduler guards it.
type JobHistory struct {
	results []JobResult
}

// Add appends a result, dropping the oldest beyond historyLimit
func (h *JobHistory) Add(r JobResult) {
	h.results = append(h.results, r)
	if over := len(h.results) - historyLimit; over > 0 {
		h.results = append(h.results[:0:0], h.results[over:]...)
	}
}

// Len returns the number of retained results
func (h *JobHistory) Len() int { return len(h.results) }

// Latest returns a copy of the newest n results (all when n exceeds Len)
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.results) {
		n = len(h.results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return append([]JobResult(nil), h.results[len(h.results)-n:]...)
}

// Failures counts the failed results
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate returns the share of successful results in [0, 1], 0 when empty
func (h *JobHistory) SuccessRate() float64 {
	if len(h.results) == 0 {
		return 0
	}
	return float64(len(h.results)-h.Failures()) / float64(len(h.results))
}

// JobStats summarizes a job's retained history
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

func (h *JobHistory) stats(name, schedule string) JobStats {
	failures := h.Failures()
	s := JobStats{
		JobName:      name,
		Schedule:     schedule,
		TotalRuns:    len(h.results),
		SuccessCount: len(h.results) - failures,
		FailureCount: failures,
		SuccessRate:  h.SuccessRate(),
	}
	for i := range h.results {
		start := h.results[i].StartTime
		s.LastRun = &start
		if h.results[i].Success {
			s.LastSuccess = &start
		} else {
			s.LastFailure = &start
		}
	}
	return s
}
