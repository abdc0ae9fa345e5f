// internal/models/analysis.go
package models

// SynthesizedProgram is the analysis routine extracted from the
// generation collaborator's reply.
type SynthesizedProgram struct {
	SourceText string `json:"sourceText"`
	Provenance string `json:"provenance"` // raw collaborator reply, logs only
}

// ExecutionResult is the single crossing point between untrusted and
// trusted code. Every sandboxed execution must produce this shape, even
// when the synthesized program failed internally.
type ExecutionResult struct {
	Error    string                 `json:"error,omitempty"`
	Insights []string               `json:"insights"`
	Chart    string                 `json:"chart,omitempty"` // base64-encoded PNG
	Data     map[string]interface{} `json:"data"`
}

// Sanitized returns a copy with the chart stripped. The narrative
// collaborator never sees the chart payload token-by-token; the chart is
// attached to the final response separately.
func (r ExecutionResult) Sanitized() ExecutionResult {
	out := r
	out.Chart = ""
	return out
}

// FinalAnswer is the user-facing response.
type FinalAnswer struct {
	Narrative string `json:"narrative"`
	Chart     string `json:"chart,omitempty"`
}
