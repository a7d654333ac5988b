package model

import "time"

// EventKind names a signal emitted by the crawl coordinator.
type EventKind string

const (
	// EventDiscovered is emitted when a URL enters the discovered set.
	EventDiscovered EventKind = "discovered"

	// EventProgress is emitted after every completed fetch.
	EventProgress EventKind = "progress"

	// EventFetchError is emitted once per URL whose fetch failed.
	EventFetchError EventKind = "fetch-error"

	// EventPaused is emitted when dispatch is suspended.
	EventPaused EventKind = "paused"

	// EventResumed is emitted when dispatch continues after a pause.
	EventResumed EventKind = "resumed"

	// EventCompleted is emitted when the frontier is exhausted.
	EventCompleted EventKind = "completed"

	// EventStopped is emitted when a stop request has fully drained.
	EventStopped EventKind = "stopped"

	// EventFailed is emitted when a run cannot proceed.
	EventFailed EventKind = "failed"
)

// Event is one entry of the coordinator's event stream.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	// URL is set for discovered and fetch-error events.
	URL string `json:"url,omitempty"`

	// External marks discovered URLs outside the crawl scope.
	External bool `json:"external,omitempty"`

	// ErrorKind and Message are set for fetch-error and failed events.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`

	// Reason explains completed, stopped and failed events.
	Reason string `json:"reason,omitempty"`

	// Fetched, FrontierSize and Discovered are set for progress events.
	Fetched      int `json:"fetched,omitempty"`
	FrontierSize int `json:"frontier_size,omitempty"`
	Discovered   int `json:"discovered,omitempty"`
}
