// Package scheduler runs background jobs on cron schedules with retries.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	entries map[string]*entry

	// Stop 시 실행 중인 job과 재시도 대기를 함께 취소
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup

	retries int
	backoff time.Duration
}

type entry struct {
	job     Job
	id      cron.EntryID
	history JobHistory
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetry sets how often a failed run is retried and the pause between attempts
func WithRetry(retries int, backoff time.Duration) Option {
	return func(s *Scheduler) {
		if retries < 0 {
			retries = 0
		}
		s.retries = retries
		s.backoff = backoff
	}
}

// WithMetrics records job runs in Prometheus
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler with second-resolution cron specs.
// Default: 3 retries, 1 minute apart.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  log,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
		retries: 3,
		backoff: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job under its cron schedule. Names must be unique.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("job %s already exists", name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(job.Schedule(), func() { s.execute(e) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	e.id = id
	s.entries[name] = e

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// RemoveJob unregisters a job and drops its history
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(e.id)
	delete(s.entries, name)

	s.logger.WithField("job", name).Info("Job removed from scheduler")
	return nil
}

// Start starts the cron loop in the background
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.running.Wait()
	s.logger.Info("Scheduler stopped")
}

// Trigger starts a job outside its schedule without waiting for it
func (s *Scheduler) Trigger(name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}
	go s.execute(e)
	return nil
}

// RunNow runs a job synchronously and returns its result (worker --once)
func (s *Scheduler) RunNow(name string) (JobResult, error) {
	e, err := s.lookup(name)
	if err != nil {
		return JobResult{}, err
	}
	return s.execute(e), nil
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return e, nil
}

// execute runs one job to completion (retries included) and records the result
func (s *Scheduler) execute(e *entry) JobResult {
	s.running.Add(1)
	defer s.running.Done()

	name := e.job.Name()
	log := s.logger.WithField("job", name)
	log.Info("Job started")

	res := JobResult{JobName: name, StartTime: time.Now()}
	err := s.withRetry(func() error {
		res.Attempts++
		return e.job.Run(s.ctx)
	}, func(attempt int, err error) {
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Job execution failed, retrying")
	})
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Success = err == nil
	if err != nil {
		res.Error = err.Error()
	}

	s.mu.Lock()
	e.history.Add(res)
	s.mu.Unlock()
	s.metrics.RecordJob(name, res.Duration, err)

	if err != nil {
		log.WithFields(map[string]interface{}{
			"duration": res.Duration,
			"attempts": res.Attempts,
			"error":    res.Error,
		}).Error("Job failed after all retries")
		return res
	}
	log.WithField("duration", res.Duration).Info("Job completed successfully")
	return res
}

// withRetry calls fn up to 1+retries times; a stopped scheduler ends it early
func (s *Scheduler) withRetry(fn func() error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt > s.retries || s.ctx.Err() != nil {
			return err
		}
		onRetry(attempt, err)

		select {
		case <-time.After(s.backoff):
		case <-s.ctx.Done():
			return err
		}
	}
}

// GetJobHistory returns a copy of a job's retained results, oldest first
func (s *Scheduler) GetJobHistory(name string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return e.history.Latest(e.history.Len()), nil
}

// GetAllJobs returns the registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJobStats summarizes every registered job
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.entries))
	for name, e := range s.entries {
		stats[name] = e.history.stats(name, e.job.Schedule())
	}
	return stats
}
