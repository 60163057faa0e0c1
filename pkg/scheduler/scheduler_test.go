package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
)

type recordingTask struct {
	name    string
	journal *[]string
	initErr error
	linkErr error

	mu    sync.Mutex
	calls []uint64
}

func (r *recordingTask) Name() string { return r.name }

func (r *recordingTask) Initialize() error {
	*r.journal = append(*r.journal, "init:"+r.name)
	return r.initErr
}

func (r *recordingTask) Link() error {
	*r.journal = append(*r.journal, "link:"+r.name)
	return r.linkErr
}

func (r *recordingTask) Step(callTime uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, callTime)
}

func (r *recordingTask) stepCalls() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.calls...)
}

func testLogger() customlog.Logger {
	return customlog.NewWriterLogger("error", io.Discard)
}

func TestInitializeAndLinkRunInOrder(t *testing.T) {
	var journal []string
	s := New(10*time.Millisecond, testLogger())
	for _, name := range []string{"bridge", "rwNullSpace"} {
		if err := s.Add(&recordingTask{name: name, journal: &journal}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := s.Link(); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	expected := []string{"init:bridge", "init:rwNullSpace", "link:bridge", "link:rwNullSpace"}
	if len(journal) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, journal)
	}
	for i := range expected {
		if journal[i] != expected[i] {
			t.Errorf("Step %d: expected %s, got %s", i, expected[i], journal[i])
		}
	}
}

func TestInitializeStopsAtFirstError(t *testing.T) {
	var journal []string
	boom := errors.New("boom")
	s := New(10*time.Millisecond, testLogger())
	s.Add(&recordingTask{name: "a", journal: &journal, initErr: boom})
	s.Add(&recordingTask{name: "b", journal: &journal})

	err := s.Initialize()
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped error, got %v", err)
	}
	if len(journal) != 1 {
		t.Errorf("Expected only the failing task to run, got %v", journal)
	}
}

func TestLinkStopsAtFirstError(t *testing.T) {
	var journal []string
	boom := errors.New("boom")
	s := New(10*time.Millisecond, testLogger())
	s.Add(&recordingTask{name: "a", journal: &journal, linkErr: boom})
	s.Add(&recordingTask{name: "b", journal: &journal})

	if err := s.Link(); !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped error, got %v", err)
	}
	if len(journal) != 1 {
		t.Errorf("Expected only the failing task to run, got %v", journal)
	}
}

func TestStepOnceUpdatesMetrics(t *testing.T) {
	var journal []string
	task := &recordingTask{name: "rwNullSpace", journal: &journal}
	s := New(10*time.Millisecond, testLogger())
	s.Add(task)

	s.StepOnce(1_000_000)
	s.StepOnce(2_000_000)

	calls := task.stepCalls()
	if len(calls) != 2 || calls[0] != 1_000_000 || calls[1] != 2_000_000 {
		t.Errorf("Unexpected step calls %v", calls)
	}

	metrics := s.Metrics()
	if len(metrics) != 1 {
		t.Fatalf("Expected 1 metrics entry, got %d", len(metrics))
	}
	m := metrics[0]
	if m.Name != "rwNullSpace" || m.StepCount != 2 || m.LastCallTime != 2_000_000 {
		t.Errorf("Unexpected metrics %+v", m)
	}
	if m.StepTimeMax < m.StepTimeAvg {
		t.Errorf("Max step time %d below average %d", m.StepTimeMax, m.StepTimeAvg)
	}
}

func TestRunStepsUntilCancelled(t *testing.T) {
	var journal []string
	task := &recordingTask{name: "rwNullSpace", journal: &journal}
	s := New(5*time.Millisecond, testLogger())
	s.Add(task)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(task.stepCalls()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	calls := task.stepCalls()
	if len(calls) < 3 {
		t.Fatalf("Expected at least 3 steps, got %d", len(calls))
	}
	if calls[0] != 0 {
		t.Errorf("First call time should be 0, got %d", calls[0])
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Errorf("Call times not increasing: %v", calls)
			break
		}
	}

	if err := s.Add(&recordingTask{name: "late", journal: &journal}); err != nil {
		t.Errorf("Add after Run returned should succeed, got %v", err)
	}
}

func TestRunRejectsInvalidPeriod(t *testing.T) {
	s := New(0, testLogger())
	if err := s.Run(context.Background()); err == nil {
		t.Error("Expected error for zero period")
	}
}
