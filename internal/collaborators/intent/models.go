// internal/collaborators/intent/models.go
package intent

import "api-insights/internal/models"

// request is the wire shape sent to the intent-resolution collaborator.
type request struct {
	UserQuery   string           `json:"userQuery"`
	CurrentTime string           `json:"currentTime"`
	Model       string           `json:"model,omitempty"`
	APIs        []models.APIInfo `json:"apis"`
}

// response is the structured reply. Absence of any required field is a
// contract violation.
type response struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TargetName string `json:"targetName"`
	TargetID   string `json:"targetId"`
}
