package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display after a crawl finishes.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every failed URL instead of the first few.
	verbose bool
}

// simpleFailureLimit is the number of failures listed without verbose.
const simpleFailureLimit = 10

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeStatusCodes(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	run := report.Run

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      SITEMAPPER CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:      %s\n", run.Seed)
	fmt.Fprintf(sb, "Mode:      %s\n", run.Mode)
	fmt.Fprintf(sb, "Scope:     %s\n", scopeText(run))
	fmt.Fprintf(sb, "Run ID:    %s\n", run.ID)
	fmt.Fprintf(sb, "Started:   %s\n", formatTime(run.StartedAt))
	fmt.Fprintf(sb, "Duration:  %s\n", formatDuration(run.Duration()))

	status := strings.ToUpper(run.Status.String())
	if run.Reason != "" {
		status += " (" + run.Reason + ")"
	}
	fmt.Fprintf(sb, "Status:    %s\n", status)
	if report.Sitemap != "" {
		fmt.Fprintf(sb, "Sitemap:   %s (%s URLs)\n", report.Sitemap, formatCount(report.SitemapURLs))
	}
	sb.WriteString("\n")
}

// writeSummary writes the run counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *Report) {
	stats := report.Run.Stats

	w.section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  FETCHED:    %s\n", formatCount(stats.Fetched))
	fmt.Fprintf(sb, "  SUCCEEDED:  %s (%.1f%%)\n", formatCount(stats.Succeeded), successRate(stats))
	fmt.Fprintf(sb, "  DISCOVERED: %s\n", formatCount(stats.Discovered))
	fmt.Fprintf(sb, "  EXTERNAL:   %s\n", formatCount(stats.External))
	fmt.Fprintf(sb, "  PENDING:    %s\n", formatCount(report.Run.FrontierSize))
	sb.WriteString("\n")

	kinds := ErrorKinds(stats)
	if len(kinds) == 0 && !w.showEmpty {
		return
	}
	fmt.Fprintf(sb, "  ERRORS:     %s\n", formatCount(stats.TotalErrors()))
	for _, k := range kinds {
		fmt.Fprintf(sb, "    %-20s %s\n", k.Label+":", formatCount(k.Value))
	}
	sb.WriteString("\n")
}

// writeStatusCodes writes response counts per status code.
func (w *SimpleWriter) writeStatusCodes(sb *strings.Builder, report *Report) {
	stats := report.Run.Stats
	if len(stats.StatusCodes) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "RESPONSE STATUS")

	if len(stats.StatusCodes) == 0 {
		sb.WriteString("  No responses\n\n")
		return
	}
	for _, c := range StatusClasses(stats) {
		fmt.Fprintf(sb, "  %-15s %s\n", c.Label+":", formatCount(c.Value))
	}
	sb.WriteString("\n")
	for _, code := range sortedCodes(stats.StatusCodes) {
		fmt.Fprintf(sb, "  [%d] %s\n", code, formatCount(stats.StatusCodes[code]))
	}
	sb.WriteString("\n")
}

// writeFailures lists failed URLs.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *Report) {
	if len(report.Failures) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "FAILED URLS")

	if len(report.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	failures := report.Failures
	if !w.verbose && len(failures) > simpleFailureLimit {
		failures = failures[:simpleFailureLimit]
	}
	for _, f := range failures {
		fmt.Fprintf(sb, "  [!] %s\n", f.URL)
		fmt.Fprintf(sb, "      %s: %s\n", ErrorKindLabel(f.ErrorKind), f.Message)
	}
	if rest := len(report.Failures) - len(failures); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose to list all)\n", rest)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitemapper\n")
	sb.WriteString("https://github.com/nao1215/sitemapper\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
