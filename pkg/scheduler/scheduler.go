// Package scheduler runs flight software tasks in a fixed-period cycle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
)

// ErrRunning is returned when tasks are added or re-initialized while Run is active
var ErrRunning = errors.New("scheduler is running")

// Task is a unit of work driven by the scheduler. Initialize runs once for
// every task before any Link, and Link runs once for every task before the
// first Step.
type Task interface {
	Name() string
	Initialize() error
	Link() error
	Step(callTime uint64)
}

// TaskMetrics tracks step timing for one task
type TaskMetrics struct {
	Name         string `json:"name"`
	StepCount    int64  `json:"step_count"`
	LastCallTime uint64 `json:"last_call_time_ns"`
	StepTimeAvg  int64  `json:"step_time_avg_us"`
	StepTimeMax  int64  `json:"step_time_max_us"`
}

type entry struct {
	task    Task
	metrics TaskMetrics
}

// Scheduler steps registered tasks in registration order
type Scheduler struct {
	period  time.Duration
	logger  customlog.Logger
	entries []*entry
	running bool
	mu      sync.Mutex
}

// New creates a scheduler with the given cycle period
func New(period time.Duration, logger customlog.Logger) *Scheduler {
	return &Scheduler{
		period: period,
		logger: logger,
	}
}

// Add registers a task. Producers must be added before their consumers.
func (s *Scheduler) Add(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}
	s.entries = append(s.entries, &entry{task: task, metrics: TaskMetrics{Name: task.Name()}})
	return nil
}

// Initialize runs Initialize on every task, stopping at the first failure
func (s *Scheduler) Initialize() error {
	for _, e := range s.snapshot() {
		if err := e.task.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize task '%s': %w", e.task.Name(), err)
		}
		s.logger.Debugf("Initialized task %s", e.task.Name())
	}
	return nil
}

// Link runs Link on every task, stopping at the first failure
func (s *Scheduler) Link() error {
	for _, e := range s.snapshot() {
		if err := e.task.Link(); err != nil {
			return fmt.Errorf("failed to link task '%s': %w", e.task.Name(), err)
		}
		s.logger.Debugf("Linked task %s", e.task.Name())
	}
	return nil
}

// StepOnce steps every task once with the given call time
func (s *Scheduler) StepOnce(callTime uint64) {
	for _, e := range s.snapshot() {
		startTime := time.Now()
		e.task.Step(callTime)
		stepTime := time.Since(startTime).Microseconds()

		s.mu.Lock()
		m := &e.metrics
		m.StepCount++
		m.LastCallTime = callTime
		if m.StepTimeAvg == 0 {
			m.StepTimeAvg = stepTime
		} else {
			// Simple moving average
			m.StepTimeAvg = (m.StepTimeAvg + stepTime) / 2
		}
		if stepTime > m.StepTimeMax {
			m.StepTimeMax = stepTime
		}
		s.mu.Unlock()
	}
}

// Run steps all tasks every period until ctx is cancelled. The first cycle
// runs immediately with call time zero; later call times are nanoseconds
// since Run started.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.period <= 0 {
		return fmt.Errorf("invalid scheduler period %s", s.period)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logMetrics()
	}()

	s.logger.Infof("Scheduler running %d tasks every %s", len(s.snapshot()), s.period)

	start := time.Now()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.StepOnce(0)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Scheduler stopped")
			return nil
		case now := <-ticker.C:
			s.StepOnce(uint64(now.Sub(start).Nanoseconds()))
		}
	}
}

// Metrics returns a copy of the per-task metrics in registration order
func (s *Scheduler) Metrics() []TaskMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskMetrics, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.metrics)
	}
	return out
}

func (s *Scheduler) snapshot() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entry(nil), s.entries...)
}

func (s *Scheduler) logMetrics() {
	for _, m := range s.Metrics() {
		s.logger.Infof("%s task metrics: steps=%d, avg_time=%dµs, max_time=%dµs",
			m.Name, m.StepCount, m.StepTimeAvg, m.StepTimeMax)
	}
}
