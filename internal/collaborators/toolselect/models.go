// internal/collaborators/toolselect/models.go
package toolselect

// ToolDescriptor is one catalog entry presented to the selection
// collaborator.
type ToolDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type request struct {
	UserQuery string           `json:"userQuery"`
	Model     string           `json:"model,omitempty"`
	Registry  []ToolDescriptor `json:"registry"`
}

type response struct {
	SelectedTools []string `json:"selectedTools"`
}
