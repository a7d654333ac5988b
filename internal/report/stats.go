package report

import (
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitemapper/internal/model"
)

// titleCaser renders enum-like names ("client error", "too-many-redirects")
// as headings.
var titleCaser = cases.Title(language.English)

// Count is one labelled bucket of a distribution.
type Count struct {
	Label string
	Value int
}

// StatusClasses groups response status codes into classes ("Success",
// "Redirect", "Client Error", "Server Error", "Informational"), in class order.
func StatusClasses(stats model.RunStats) []Count {
	byClass := make(map[int]int)
	for code, n := range stats.StatusCodes {
		byClass[code/100] += n
	}

	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	counts := make([]Count, 0, len(classes))
	for _, class := range classes {
		counts = append(counts, Count{Label: statusClassName(class), Value: byClass[class]})
	}
	return counts
}

func statusClassName(class int) string {
	var name string
	switch class {
	case 1:
		name = "informational"
	case 2:
		name = "success"
	case 3:
		name = "redirect"
	case 4:
		name = "client error"
	case 5:
		name = "server error"
	default:
		name = "other"
	}
	return titleCaser.String(name)
}

// ErrorKinds returns the failure counts by kind, largest first, with
// title-cased labels such as "Too Many Redirects".
func ErrorKinds(stats model.RunStats) []Count {
	counts := make([]Count, 0, len(stats.Errors))
	for kind, n := range stats.Errors {
		if n == 0 {
			continue
		}
		counts = append(counts, Count{Label: ErrorKindLabel(kind), Value: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Value != counts[j].Value {
			return counts[i].Value > counts[j].Value
		}
		return counts[i].Label < counts[j].Label
	})
	return counts
}

// ErrorKindLabel renders an error kind for display, e.g. "http-status"
// becomes "Http Status".
func ErrorKindLabel(kind model.ErrorKind) string {
	if kind == model.ErrorKindNone {
		return "None"
	}
	return titleCaser.String(strings.ReplaceAll(string(kind), "-", " "))
}

// StatusLabel renders a run status for display, e.g. "Completed".
func StatusLabel(status model.RunStatus) string {
	return titleCaser.String(status.String())
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

// formatDuration rounds a run duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// formatTime renders a timestamp, or "-" when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// scopeText describes the crawl scope of a run.
func scopeText(run *model.RunSummary) string {
	if run.Scope.Host == "" {
		return "-"
	}
	return run.Scope.Host + run.Scope.PathPrefix
}

// successRate returns the share of succeeded fetches in percent.
func successRate(stats model.RunStats) float64 {
	if stats.Fetched == 0 {
		return 0
	}
	return float64(stats.Succeeded) * 100 / float64(stats.Fetched)
}

// sortedCodes returns the status codes in ascending order.
func sortedCodes(codes map[int]int) []int {
	sorted := make([]int, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Ints(sorted)
	return sorted
}
