package report

import (
	"io"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// Report is the data rendered by every Writer: one run summary plus the
// URLs that failed during it.
//
// Design decision: We wrap the run summary rather than rendering it
// directly so output-specific fields (sitemap path, failure list) do not
// leak into the persisted RunSummary.
type Report struct {
	// Version is the sitemapper version that generated this report.
	Version string `json:"version"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Run is the summary of the crawl run.
	Run *model.RunSummary `json:"run"`

	// Sitemap is the path of the written sitemap file, if any.
	Sitemap string `json:"sitemap,omitempty"`

	// SitemapURLs is the number of URLs written to the sitemap.
	SitemapURLs int `json:"sitemap_urls"`

	// Failures lists the records of URLs whose fetch failed.
	Failures []*model.Record `json:"failures,omitempty"`
}

// NewReport creates a Report for run.
func NewReport(run *model.RunSummary, version string) *Report {
	return &Report{
		Version:     version,
		GeneratedAt: time.Now(),
		Run:         run,
	}
}

// Writer defines the interface for report output.
// Implementations write run reports in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *Report) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
