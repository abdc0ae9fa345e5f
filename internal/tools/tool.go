// internal/tools/tool.go
package tools

import (
	"context"
	"errors"

	"api-insights/internal/models"
)

// ToolID identifies one telemetry tool in the closed registry.
type ToolID string

const (
	ToolErrorData   ToolID = "error-data"
	ToolTrafficData ToolID = "traffic-data"
	ToolLatencyData ToolID = "latency-data"
	ToolSummaryData ToolID = "summary-data"
)

var (
	ErrSourceUnavailable = errors.New("SOURCE_UNAVAILABLE")
	ErrSourceTimeout     = errors.New("SOURCE_TIMEOUT")
	ErrUnknownTool       = errors.New("UNKNOWN_TOOL")
)

// Adapter is the uniform contract every telemetry source adapter
// implements. Fetch returns ordered, normalized records plus a schema
// descriptor; an empty window yields an empty slice, never an error.
type Adapter interface {
	ID() ToolID
	Describe() string
	Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error)
}

// Registry maps tool ids to adapter implementations. It is built once at
// startup and read-only afterwards.
type Registry struct {
	adapters map[ToolID]Adapter
	order    []ToolID
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[ToolID]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.ID()]; dup {
			continue
		}
		r.adapters[a.ID()] = a
		r.order = append(r.order, a.ID())
	}
	return r
}

// Get returns the adapter for id.
func (r *Registry) Get(id ToolID) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, ErrUnknownTool
	}
	return a, nil
}

// IDs returns the registered tool ids in registration order.
func (r *Registry) IDs() []ToolID {
	out := make([]ToolID, len(r.order))
	copy(out, r.order)
	return out
}

// ParseToolIDs filters a collaborator selection down to known tools,
// preserving order and dropping duplicates. Unknown identifiers are
// dropped here, at the selection boundary, not deep in execution.
func (r *Registry) ParseToolIDs(raw []string) []ToolID {
	seen := make(map[ToolID]bool, len(raw))
	var out []ToolID
	for _, s := range raw {
		id := ToolID(s)
		if _, ok := r.adapters[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
