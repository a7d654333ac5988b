package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitemapper/internal/model"
)

// maxMarkdownFailures caps the failure table so large crawls stay readable.
const maxMarkdownFailures = 100

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, e.g. attaching an
// audit summary to a pull request.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts and mermaid charts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStatistics(md, report)
	w.writeStatusCodes(md, report.Run.Stats)
	w.writeFailures(md, report)
	w.writeFooter(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	run := report.Run

	md.H1("Sitemap Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + run.Seed + "`"},
		{"Mode", string(run.Mode)},
		{"Scope", "`" + scopeText(run) + "`"},
		{"Run ID", "`" + run.ID + "`"},
		{"Started", formatTime(run.StartedAt)},
		{"Duration", formatDuration(run.Duration())},
		{"Status", w.statusText(run)},
	}
	if report.Sitemap != "" {
		rows = append(rows, []string{"Sitemap", "`" + report.Sitemap + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText returns the status text with an indicator.
func (w *MarkdownWriter) statusText(run *model.RunSummary) string {
	label := StatusLabel(run.Status)
	if run.Reason != "" {
		label += " (" + run.Reason + ")"
	}
	switch run.Status {
	case model.RunCompleted:
		return "✅ " + label
	case model.RunStopped:
		return "⏹️ " + label
	case model.RunFailed:
		return "❌ " + label
	default:
		return "⏳ " + label
	}
}

// writeStatistics writes the counters table and an alert on failures.
func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, report *Report) {
	stats := report.Run.Stats

	md.H2("Statistics")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Fetched", formatCount(stats.Fetched)},
			{"Succeeded", formatCount(stats.Succeeded)},
			{"Discovered", formatCount(stats.Discovered)},
			{"External", formatCount(stats.External)},
			{"Sitemap URLs", formatCount(report.SitemapURLs)},
			{"Pending in frontier", formatCount(report.Run.FrontierSize)},
			{"**Errors**", "**" + formatCount(stats.TotalErrors()) + "**"},
		},
	})
	md.PlainText("")

	if kinds := ErrorKinds(stats); len(kinds) > 0 {
		rows := make([][]string, 0, len(kinds))
		for _, k := range kinds {
			rows = append(rows, []string{k.Label, formatCount(k.Value)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Error Kind", "Count"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeAlert(md, report)
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *Report) {
	run := report.Run
	errs := run.Stats.TotalErrors()

	switch {
	case run.Status == model.RunFailed:
		md.Cautionf("The run failed: %s", run.Reason)
	case run.Status == model.RunStopped:
		md.Warningf(
			"The run was stopped (%s). %d URL(s) were still pending; use --resume to continue.",
			run.Reason, run.FrontierSize,
		)
	case errs > 0:
		md.Importantf(
			"%d URL(s) could not be fetched (%.1f%% success rate).",
			errs, successRate(run.Stats),
		)
	case run.Stats.Fetched == 0:
		md.Note("No URLs were fetched.")
	default:
		md.Tip("Every fetched URL responded without errors.")
	}
	md.PlainText("")
}

// writeStatusCodes writes a mermaid pie chart for the status class distribution.
func (w *MarkdownWriter) writeStatusCodes(md *markdown.Markdown, stats model.RunStats) {
	classes := StatusClasses(stats)
	if len(classes) == 0 {
		return
	}

	md.H2("Response Status")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Responses by Status Class"),
		piechart.WithShowData(true),
	)
	for _, c := range classes {
		chart.LabelAndIntValue(c.Label, uint64(c.Value)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	codes := sortedCodes(stats.StatusCodes)
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, []string{strconv.Itoa(code), formatCount(stats.StatusCodes[code])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status Code", "Responses"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failed URLs table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *Report) {
	if len(report.Failures) == 0 {
		return
	}

	md.H2("Failed URLs")
	md.PlainText("")

	failures := report.Failures
	if len(failures) > maxMarkdownFailures {
		failures = failures[:maxMarkdownFailures]
	}

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			truncateString(f.URL, 80),
			ErrorKindLabel(f.ErrorKind),
			truncateString(f.Message, 60),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	if rest := len(report.Failures) - len(failures); rest > 0 {
		md.PlainTextf("... and %d more.", rest)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *Report) {
	md.HorizontalRule()
	md.PlainText("")
	version := ""
	if report.Version != "" {
		version = " " + report.Version
	}
	md.PlainText(fmt.Sprintf("*Report generated by [sitemapper%s](https://github.com/nao1215/sitemapper)*", version))
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if s == "" {
		return "-"
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
