package crawler

import "errors"

// Coordinator errors.
//
// Design decision: Lifecycle violations get their own sentinels so the CLI can
// tell "you must reset first" apart from "a crawl is still running" and from
// configuration problems that keep a run from starting at all.
var (
	// ErrAlreadyRunning is returned when starting or resetting while a run is
	// Running or Paused.
	ErrAlreadyRunning = errors.New("a crawl is already running")

	// ErrNotIdle is returned when starting after a run has ended without a Reset.
	ErrNotIdle = errors.New("coordinator is not idle")

	// ErrNotRunning is returned by Pause, Resume, Stop and Wait when there is
	// no run to act on.
	ErrNotRunning = errors.New("no crawl is running")

	// ErrInvalidSeed is returned when the seed URL cannot be normalized.
	// The run ends Failed without fetching anything.
	ErrInvalidSeed = errors.New("invalid seed url")

	// ErrNoSeeds is returned when a URL list contains no usable URL.
	ErrNoSeeds = errors.New("no valid urls to fetch")
)
