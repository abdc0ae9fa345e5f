// internal/collaborators/codegen/client_test.go
package codegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		GenAIBaseURL: srv.URL,
		Timeout:      time.Second,
		MaxRetries:   0,
	}, logger.NewNoOpLogger())
}

func testWindow(t *testing.T) models.TimeRange {
	t.Helper()
	start, err := time.Parse(time.RFC3339, "2026-08-01T00:00:00Z")
	require.NoError(t, err)
	return models.TimeRange{Start: start, End: start.Add(48 * time.Hour)}
}

func testSchemas() map[string]models.Schema {
	return map[string]models.Schema{
		"error-data": {{Name: "responseCode", Type: "long"}},
	}
}

func TestGenerateExtractsProgram(t *testing.T) {
	var gotReq request
	reply := "Here is the analysis:\n```python\ndef analyze(bundle):\n    return {\"insights\": [], \"data\": {}}\n```\nLet me know if it helps."

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]string{"text": reply})
	})

	program, err := client.Generate(context.Background(), "why did orders fail", testSchemas(), testWindow(t))
	require.NoError(t, err)

	assert.Equal(t, "def analyze(bundle):\n    return {\"insights\": [], \"data\": {}}", program.SourceText)
	assert.Equal(t, reply, program.Provenance)

	// Schemas go over the wire; raw records never do.
	require.Contains(t, gotReq.Schemas, "error-data")
	assert.Contains(t, gotReq.Constraints, "def analyze(bundle)")
	assert.Contains(t, gotReq.Constraints, "2026-08-01T00:00:00Z")
}

func TestGenerateNoCodeBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "I cannot write that program."})
	})

	_, err := client.Generate(context.Background(), "query", testSchemas(), testWindow(t))
	assert.ErrorIs(t, err, ErrNoCodeBlock)
}

func TestGenerateServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Generate(context.Background(), "query", testSchemas(), testWindow(t))
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{
			name:  "language-tagged block",
			reply: "```python\nprint(1)\n```",
			want:  "print(1)",
		},
		{
			name:  "untagged block",
			reply: "```\nprint(1)\n```",
			want:  "print(1)",
		},
		{
			name:  "first of several blocks wins",
			reply: "```python\nfirst\n```\ntext\n```python\nsecond\n```",
			want:  "first",
		},
		{
			name:    "no block",
			reply:   "plain prose reply",
			wantErr: true,
		},
		{
			name:    "empty block",
			reply:   "```python\n\n```",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCodeBlock(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoCodeBlock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChartCadence(t *testing.T) {
	day := 24 * time.Hour
	assert.Contains(t, chartCadence(day), "hour")
	assert.Contains(t, chartCadence(7*day), "day")
	assert.Contains(t, chartCadence(21*day), "multi-day")
	assert.Contains(t, chartCadence(60*day), "week")
	assert.Contains(t, chartCadence(180*day), "month")
}
