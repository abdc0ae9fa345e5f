// internal/collaborators/codegen/constraints.go
package codegen

import (
	"fmt"
	"strings"
	"time"

	"api-insights/internal/models"
)

// chartCadence returns the bucketing guidance for a window span so that
// generated charts stay readable regardless of window size.
func chartCadence(span time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case span <= 2*day:
		return "bucket chart data by hour"
	case span <= 14*day:
		return "bucket chart data by day"
	case span <= 28*day:
		return "bucket chart data in multi-day buckets (2-4 days each)"
	case span <= 90*day:
		return "bucket chart data by week"
	default:
		return "bucket chart data by month"
	}
}

// buildConstraints renders the fixed execution-contract constraints passed
// to the generation collaborator. These are textual instructions; nothing
// here is executed locally.
func buildConstraints(window models.TimeRange) string {
	var b strings.Builder

	b.WriteString("Write a single self-contained Python function:\n")
	b.WriteString("  def analyze(bundle):\n")
	b.WriteString("The bundle argument is a dict mapping tool id to a dict with keys ")
	b.WriteString("'records' (list of flat dicts) and 'schema' (list of {name, type}).\n")
	b.WriteString("Requirements:\n")
	b.WriteString("- Return a dict with exactly these keys: 'error' (string or None), ")
	b.WriteString("'insights' (list of strings), 'chart' (base64-encoded PNG string or None), ")
	b.WriteString("'data' (dict of supporting values).\n")
	b.WriteString("- All returned values must be JSON-serializable: no datetime, numpy or pandas objects.\n")
	b.WriteString("- Never write chart output (or any file) to disk; encode charts in memory.\n")
	b.WriteString("- Degrade gracefully: missing or empty datasets must produce a valid result, not an exception.\n")
	b.WriteString("- Timestamps in records are RFC 3339 UTC strings.\n")
	fmt.Fprintf(&b, "- The analysis window is %s to %s; %s.\n",
		window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339), chartCadence(window.Span()))
	b.WriteString("Reply with exactly one fenced code block containing the complete function.")

	return b.String()
}
