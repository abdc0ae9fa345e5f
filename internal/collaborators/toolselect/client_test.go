// internal/collaborators/toolselect/client_test.go
package toolselect

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

func testRegistry() []ToolDescriptor {
	return []ToolDescriptor{
		{ID: "error-data", Name: "Error Data", Description: "Per-window API error rows"},
		{ID: "traffic-data", Name: "Traffic Data", Description: "Hit totals per window"},
	}
}

func TestSelectReturnsSelection(t *testing.T) {
	var gotReq request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"selectedTools": []string{"error-data", "traffic-data"},
		})
	})

	selected, err := client.Select(context.Background(), "why did orders fail", testRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{"error-data", "traffic-data"}, selected)
	assert.Len(t, gotReq.Registry, 2)
}

func TestSelectEmptySelectionIsValid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"selectedTools": []string{}})
	})

	selected, err := client.Select(context.Background(), "what is the meaning of life", testRegistry())
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestSelectServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream model overloaded", http.StatusBadGateway)
	})

	_, err := client.Select(context.Background(), "query", testRegistry())
	assert.ErrorIs(t, err, ErrToolSelectionFailed)
}
