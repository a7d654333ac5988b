package model

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a crawl run.
//
//	Idle -> Running -> {Completed, Stopped, Failed}
//	Running <-> Paused
type RunStatus int

const (
	// RunIdle means no run is active; a new run may start.
	RunIdle RunStatus = iota

	// RunRunning means fetches are being dispatched.
	RunRunning

	// RunPaused means dispatch is suspended; in-flight fetches still finish.
	RunPaused

	// RunCompleted means the frontier was exhausted.
	RunCompleted

	// RunStopped means the run was halted on request.
	RunStopped

	// RunFailed means the run could not proceed (e.g. invalid seed).
	RunFailed
)

// String returns a human-readable name for the status.
func (s RunStatus) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunRunning:
		return "running"
	case RunPaused:
		return "paused"
	case RunCompleted:
		return "completed"
	case RunStopped:
		return "stopped"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *RunStatus) UnmarshalText(text []byte) error {
	for candidate := RunIdle; candidate <= RunFailed; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown run status %q", text)
}

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunStopped || s == RunFailed
}

// RunMode tells how a run was seeded.
type RunMode string

const (
	// RunModeCrawl follows links from a single seed URL.
	RunModeCrawl RunMode = "crawl"

	// RunModeList fetches a supplied URL list without following links.
	RunModeList RunMode = "list"
)

// RunStats holds counters for one run.
type RunStats struct {
	// Fetched is the number of completed fetches (success or failure).
	Fetched int `json:"fetched"`

	// Succeeded is the number of fetches that produced a non-error response.
	Succeeded int `json:"succeeded"`

	// Discovered is the size of the discovered set.
	Discovered int `json:"discovered"`

	// External is the number of out-of-scope URLs recorded.
	External int `json:"external"`

	// Errors counts recovered failures by kind.
	Errors map[ErrorKind]int `json:"errors,omitempty"`

	// StatusCodes counts responses by HTTP status code.
	StatusCodes map[int]int `json:"status_codes,omitempty"`
}

// TotalErrors returns the sum of all recovered failures.
func (s RunStats) TotalErrors() int {
	total := 0
	for _, n := range s.Errors {
		total += n
	}
	return total
}

// Clone returns a deep copy of the stats.
func (s RunStats) Clone() RunStats {
	c := s
	c.Errors = make(map[ErrorKind]int, len(s.Errors))
	for k, v := range s.Errors {
		c.Errors[k] = v
	}
	c.StatusCodes = make(map[int]int, len(s.StatusCodes))
	for k, v := range s.StatusCodes {
		c.StatusCodes[k] = v
	}
	return c
}

// RunSummary describes a finished (or in-progress) run.
// It is persisted in the runs table and rendered by report writers.
type RunSummary struct {
	ID           string    `json:"id"`
	Mode         RunMode   `json:"mode"`
	Seed         string    `json:"seed"`
	Scope        Scope     `json:"scope"`
	Status       RunStatus `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	FrontierSize int       `json:"frontier_size"`
	Stats        RunStats  `json:"stats"`
}

// Duration returns how long the run took (or has taken so far).
func (r *RunSummary) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
