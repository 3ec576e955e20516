package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run statuses. Transitions: idle → running → succeeded|failed → running…
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunState is a mutex-guarded single-flight gate for pipeline runs: at most
// one run at a time, with the last outcome kept for status queries.
type RunState struct {
	mu         sync.Mutex
	status     string
	runID      string
	startedAt  time.Time
	finishedAt time.Time
	err        string
}

// NewRunState creates an idle RunState.
func NewRunState() *RunState {
	return &RunState{status: StatusIdle}
}

// TryStart claims the running slot. When a run is already in flight it
// returns that run's ID and false; otherwise a fresh run ID and true.
func (s *RunState) TryStart() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		return s.runID, false
	}

	s.status = StatusRunning
	s.runID = fmt.Sprintf("gem-%s", uuid.NewString()[:8])
	s.startedAt = time.Now().UTC()
	s.finishedAt = time.Time{}
	s.err = ""
	return s.runID, true
}

// Finish records the outcome of the in-flight run.
func (s *RunState) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finishedAt = time.Now().UTC()
	if err != nil {
		s.status = StatusFailed
		s.err = err.Error()
		return
	}
	s.status = StatusSucceeded
}

// RunStatus is a point-in-time view of the run state, shaped for the status
// endpoint.
type RunStatus struct {
	Status     string `json:"status"`
	RunID      string `json:"run_id,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Snapshot returns the current state.
func (s *RunState) Snapshot() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := RunStatus{
		Status: s.status,
		RunID:  s.runID,
		Error:  s.err,
	}
	if !s.startedAt.IsZero() {
		status.StartedAt = s.startedAt.Format(time.RFC3339)
	}
	if !s.finishedAt.IsZero() {
		status.FinishedAt = s.finishedAt.Format(time.RFC3339)
	}
	return status
}
