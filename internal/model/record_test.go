package model

import (
	"testing"
	"time"
)

// TestNewRecordFromResult tests conversion of fetch results into records.
func TestNewRecordFromResult(t *testing.T) {
	t.Parallel()

	t.Run("success becomes fetched", func(t *testing.T) {
		t.Parallel()

		u := MustNormalizeURL("http://example.com/")
		r := NewSuccessResult(u, u, 200, map[string][]string{"Content-Type": {"text/html"}}, []byte("<html></html>"))
		r.Attempts = 1
		r.Elapsed = 1500 * time.Millisecond

		rec := NewRecordFromResult("run-1", 2, r)
		if rec.State != RecordFetched {
			t.Errorf("State = %q, expected fetched", rec.State)
		}
		if rec.URL != "http://example.com/" {
			t.Errorf("URL = %q", rec.URL)
		}
		if rec.Depth != 2 || rec.RunID != "run-1" {
			t.Errorf("Depth/RunID = %d/%q", rec.Depth, rec.RunID)
		}
		if rec.ElapsedMS != 1500 {
			t.Errorf("ElapsedMS = %d, expected 1500", rec.ElapsedMS)
		}
		if rec.BodySize != len("<html></html>") {
			t.Errorf("BodySize = %d", rec.BodySize)
		}
	})

	t.Run("http error becomes failed", func(t *testing.T) {
		t.Parallel()

		u := MustNormalizeURL("http://example.com/gone")
		rec := NewRecordFromResult("run-1", 0, NewSuccessResult(u, u, 410, nil, nil))
		if rec.State != RecordFailed {
			t.Errorf("State = %q, expected failed", rec.State)
		}
		if rec.ErrorKind != ErrorKindHTTPStatus {
			t.Errorf("ErrorKind = %q", rec.ErrorKind)
		}
	})

	t.Run("transport error becomes failed", func(t *testing.T) {
		t.Parallel()

		u := MustNormalizeURL("http://example.com/down")
		rec := NewRecordFromResult("run-1", 0, NewErrorResult(u, ErrorKindTransport, "connection refused"))
		if rec.State != RecordFailed || rec.ErrorKind != ErrorKindTransport {
			t.Errorf("State/ErrorKind = %q/%q", rec.State, rec.ErrorKind)
		}
		if rec.Message != "connection refused" {
			t.Errorf("Message = %q", rec.Message)
		}
	})
}

// TestRecordEncodeDecode tests that stored records survive a store round trip.
func TestRecordEncodeDecode(t *testing.T) {
	t.Parallel()

	rec := &Record{
		URL:        "http://example.com/a",
		State:      RecordExternal,
		Depth:      3,
		StatusCode: 0,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord() error: %v", err)
	}
	if got.URL != rec.URL || got.State != rec.State || got.Depth != rec.Depth || !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("got %+v, expected %+v", got, rec)
	}

	if _, err := DecodeRecord([]byte("{not json")); err == nil {
		t.Error("expected error for malformed data")
	}
}

// TestRecordInSitemap tests which states are exported.
func TestRecordInSitemap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state           RecordState
		includeExternal bool
		expected        bool
	}{
		{RecordFetched, false, true},
		{RecordExternal, true, true},
		{RecordExternal, false, false},
		{RecordFailed, true, false},
		{RecordQueued, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			t.Parallel()

			rec := &Record{State: tt.state}
			if got := rec.InSitemap(tt.includeExternal); got != tt.expected {
				t.Errorf("InSitemap(%v) = %v, expected %v", tt.includeExternal, got, tt.expected)
			}
		})
	}
}

// TestRunStatus tests run status names and terminal states.
func TestRunStatus(t *testing.T) {
	t.Parallel()

	terminal := map[RunStatus]bool{
		RunIdle:      false,
		RunRunning:   false,
		RunPaused:    false,
		RunCompleted: true,
		RunStopped:   true,
		RunFailed:    true,
	}
	for status, expected := range terminal {
		if status.Terminal() != expected {
			t.Errorf("%s.Terminal() = %v, expected %v", status, status.Terminal(), expected)
		}
		if status.String() == "unknown" {
			t.Errorf("missing name for status %d", int(status))
		}
	}
}

// TestRunStatusText tests that run statuses encode by name.
func TestRunStatusText(t *testing.T) {
	t.Parallel()

	for status := RunIdle; status <= RunFailed; status++ {
		text, err := status.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) error: %v", int(status), err)
		}
		var decoded RunStatus
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", text, err)
		}
		if decoded != status {
			t.Errorf("decoded %q as %s, expected %s", text, decoded, status)
		}
	}

	var s RunStatus
	if err := s.UnmarshalText([]byte("sleeping")); err == nil {
		t.Error("expected error for unknown status")
	}
}

// TestRunStatsClone tests that clones do not share maps.
func TestRunStatsClone(t *testing.T) {
	t.Parallel()

	s := RunStats{
		Errors:      map[ErrorKind]int{ErrorKindTransport: 2, ErrorKindHTTPStatus: 1},
		StatusCodes: map[int]int{200: 5},
	}
	c := s.Clone()
	c.Errors[ErrorKindTransport] = 10

	if s.Errors[ErrorKindTransport] != 2 {
		t.Error("clone shares the errors map")
	}
	if s.TotalErrors() != 3 {
		t.Errorf("TotalErrors() = %d, expected 3", s.TotalErrors())
	}
}
