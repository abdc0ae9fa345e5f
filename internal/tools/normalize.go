// internal/tools/normalize.go
package tools

import (
	"time"

	"api-insights/internal/models"
)

// nativeTimestampLayouts are the source-system datetime renderings an
// adapter may encounter in a raw document.
var nativeTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeRecord projects a raw document onto the declared schema,
// rewriting every timestamp-typed field to RFC 3339 UTC. No native
// temporal representation crosses the adapter boundary.
func normalizeRecord(doc map[string]interface{}, schema models.Schema) models.Record {
	record := make(models.Record, len(schema))
	for _, field := range schema {
		value, ok := doc[field.Name]
		if !ok {
			record[field.Name] = nil
			continue
		}
		if field.Type == "timestamp" {
			record[field.Name] = normalizeTimestamp(value)
			continue
		}
		record[field.Name] = value
	}
	return record
}

// normalizeTimestamp renders any recognized timestamp value as an
// RFC 3339 UTC string. Unrecognized values pass through as strings so a
// malformed source row degrades visibly instead of crashing the fetch.
func normalizeTimestamp(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		for _, layout := range nativeTimestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC().Format(time.RFC3339)
			}
		}
		return v
	case float64:
		// Epoch milliseconds, the store's default date rendering.
		return time.UnixMilli(int64(v)).UTC().Format(time.RFC3339)
	case int64:
		return time.UnixMilli(v).UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// normalizeAll applies normalizeRecord in order.
func normalizeAll(docs []map[string]interface{}, schema models.Schema) []models.Record {
	records := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, normalizeRecord(doc, schema))
	}
	return records
}
