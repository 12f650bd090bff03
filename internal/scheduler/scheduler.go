// Package scheduler runs recurring scan cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ScanJob is one scheduled unit of work. The context carries the job's
// deadline; a job that overruns it must stop.
type ScanJob func(ctx context.Context)

// Scheduler manages recurring scan cycle jobs
type Scheduler struct {
	cron       *cron.Cron
	logger     *logrus.Logger
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
}

// NewScheduler creates a new scheduler. Jobs run in UTC.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		logger:     logger,
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 2 * time.Minute,
	}
}

// SetJobTimeout overrides the per-run deadline applied to every job
func (s *Scheduler) SetJobTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout > 0 {
		s.jobTimeout = timeout
	}
}

// ScheduleScanCycle registers a recurring scan job. Overlapping runs are
// skipped rather than queued: a cycle that hasn't finished means the
// market data it would re-fetch hasn't gone anywhere.
func (s *Scheduler) ScheduleScanCycle(cronExpression, name string, job ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	var inFlight sync.Mutex
	jobFunc := func() {
		if !inFlight.TryLock() {
			s.logger.WithField("job", name).Warn("Previous run still in flight, skipping cycle")
			return
		}
		defer inFlight.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		started := time.Now()
		job(ctx)
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(started).Seconds(),
		}).Debug("Scheduled job completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"cron": cronExpression,
	}).Info("Scan job scheduled")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
