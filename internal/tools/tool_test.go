// internal/tools/tool_test.go
package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-insights/internal/models"
)

type stubAdapter struct {
	id ToolID
}

func (s stubAdapter) ID() ToolID       { return s.id }
func (s stubAdapter) Describe() string { return string(s.id) }
func (s stubAdapter) Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error) {
	return models.Dataset{ToolID: string(s.id)}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(
		stubAdapter{id: ToolErrorData},
		stubAdapter{id: ToolTrafficData},
		stubAdapter{id: ToolLatencyData},
		stubAdapter{id: ToolSummaryData},
	)
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry()

	a, err := r.Get(ToolTrafficData)
	require.NoError(t, err)
	assert.Equal(t, ToolTrafficData, a.ID())

	_, err = r.Get(ToolID("made-up"))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistryIDsPreserveRegistrationOrder(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, []ToolID{ToolErrorData, ToolTrafficData, ToolLatencyData, ToolSummaryData}, r.IDs())
}

func TestParseToolIDs(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name string
		raw  []string
		want []ToolID
	}{
		{
			name: "known tools pass through in order",
			raw:  []string{"latency-data", "error-data"},
			want: []ToolID{ToolLatencyData, ToolErrorData},
		},
		{
			name: "unknown identifiers are dropped",
			raw:  []string{"error-data", "billing-data"},
			want: []ToolID{ToolErrorData},
		},
		{
			name: "duplicates collapse to first occurrence",
			raw:  []string{"traffic-data", "traffic-data", "summary-data"},
			want: []ToolID{ToolTrafficData, ToolSummaryData},
		},
		{
			name: "empty selection stays empty",
			raw:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ParseToolIDs(tt.raw))
		})
	}
}
