// internal/models/dataset.go
package models

// Record is one flat telemetry row. Timestamp-typed fields are always
// RFC 3339 UTC strings by the time a record leaves an adapter.
type Record map[string]interface{}

// Field describes one column of a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the ordered structural descriptor of a dataset.
type Schema []Field

// Dataset is the normalized output of one dataset adapter.
type Dataset struct {
	ToolID  string   `json:"toolId"`
	Records []Record `json:"records"`
	Schema  Schema   `json:"schema"`
}

// Empty reports whether the adapter found no rows for the window. This is
// a distinct observable condition, not an error.
func (d Dataset) Empty() bool {
	return len(d.Records) == 0
}

// DatasetBundle maps tool id to dataset for one request. It is owned
// exclusively by the orchestrator for the lifetime of that request.
type DatasetBundle struct {
	Datasets map[string]Dataset `json:"datasets"`
}

// NewDatasetBundle returns an empty bundle.
func NewDatasetBundle() *DatasetBundle {
	return &DatasetBundle{Datasets: make(map[string]Dataset)}
}

// Add records one adapter's result.
func (b *DatasetBundle) Add(d Dataset) {
	b.Datasets[d.ToolID] = d
}

// Schemas returns the per-tool schema descriptors, never raw rows.
func (b *DatasetBundle) Schemas() map[string]Schema {
	schemas := make(map[string]Schema, len(b.Datasets))
	for id, d := range b.Datasets {
		schemas[id] = d.Schema
	}
	return schemas
}

// AllEmpty reports whether every collected dataset has zero records.
func (b *DatasetBundle) AllEmpty() bool {
	for _, d := range b.Datasets {
		if !d.Empty() {
			return false
		}
	}
	return true
}
