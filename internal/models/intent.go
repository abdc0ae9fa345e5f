// internal/models/intent.go
package models

import "time"

// TargetNoData is the sentinel the intent collaborator returns when the
// query names no specific API. Adapters must treat it as "no entity
// filter", never as a literal filter value.
const TargetNoData = "NoData"

// MinWindow is the minimum span of a resolved time range.
const MinWindow = 24 * time.Hour

// TimeRange is the half-open analysis window [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Span returns the window duration.
func (r TimeRange) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// Valid reports whether the range is ordered and meets the minimum span.
func (r TimeRange) Valid() bool {
	return r.End.After(r.Start) && r.Span() >= MinWindow
}

// Target identifies the API the question is about.
type Target struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// IsNoData reports whether the target is the "no entity filter" sentinel.
func (t Target) IsNoData() bool {
	return t.ID == TargetNoData || t.ID == ""
}

// Intent is the resolved time range and target entity extracted from a
// free-text user query.
type Intent struct {
	TimeRange TimeRange `json:"timeRange"`
	Target    Target    `json:"target"`
}
