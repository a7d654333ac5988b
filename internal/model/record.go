package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordState is the persisted lifecycle state of a URL.
type RecordState string

const (
	// RecordQueued means the URL was accepted into the frontier but not fetched yet.
	RecordQueued RecordState = "queued"

	// RecordFetched means the URL was fetched successfully and is part of the sitemap.
	RecordFetched RecordState = "fetched"

	// RecordFailed means every fetch attempt failed.
	RecordFailed RecordState = "failed"

	// RecordExternal means the URL is out of scope and was recorded but never fetched.
	RecordExternal RecordState = "external"

	// RecordRedirected means the URL answered with a redirect. Its final URL
	// is recorded separately and takes its place in the sitemap.
	RecordRedirected RecordState = "redirected"
)

// Record is the value persisted for each canonical URL.
// It carries enough of the FetchResult to replay an audit view without
// keeping full bodies on disk.
type Record struct {
	URL         string              `json:"url"`
	State       RecordState         `json:"state"`
	RunID       string              `json:"run_id,omitempty"`
	Depth       int                 `json:"depth"`
	StatusCode  int                 `json:"status_code,omitempty"`
	ContentType string              `json:"content_type,omitempty"`
	Title       string              `json:"title,omitempty"`
	BodyHash    string              `json:"body_hash,omitempty"`
	BodySize    int                 `json:"body_size,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`
	ErrorKind   ErrorKind           `json:"error_kind,omitempty"`
	Message     string              `json:"message,omitempty"`
	Attempts    int                 `json:"attempts,omitempty"`
	ElapsedMS   int64               `json:"elapsed_ms,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewRecordFromResult converts a fetch result into a persisted record.
func NewRecordFromResult(runID string, depth int, r *FetchResult) *Record {
	rec := &Record{
		URL:         r.URL.String(),
		RunID:       runID,
		Depth:       depth,
		StatusCode:  r.StatusCode,
		ContentType: r.ContentType,
		BodyHash:    r.BodyHash,
		BodySize:    len(r.Body),
		Headers:     r.Headers,
		ErrorKind:   r.FailureKind(),
		Message:     r.FailureMessage(),
		Attempts:    r.Attempts,
		ElapsedMS:   r.Elapsed.Milliseconds(),
		Timestamp:   r.Timestamp,
	}
	if r.OK() {
		rec.State = RecordFetched
	} else {
		rec.State = RecordFailed
	}
	return rec
}

// Encode serializes the record for the key-value store.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", r.URL, err)
	}
	return data, nil
}

// DecodeRecord parses a value previously produced by Record.Encode.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}

// InSitemap reports whether the record belongs in a sitemap export.
func (r *Record) InSitemap(includeExternal bool) bool {
	switch r.State {
	case RecordFetched:
		return true
	case RecordExternal:
		return includeExternal
	default:
		return false
	}
}
