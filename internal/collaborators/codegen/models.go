// internal/collaborators/codegen/models.go
package codegen

import "api-insights/internal/models"

type request struct {
	UserQuery   string                   `json:"userQuery"`
	Model       string                   `json:"model,omitempty"`
	Schemas     map[string]models.Schema `json:"schemas"`
	Constraints string                   `json:"constraints"`
}

type response struct {
	Text string `json:"text"`
}
