// internal/models/inventory.go
package models

// APIInfo is one entry of the organization's API inventory, used to
// ground target selection during intent resolution.
type APIInfo struct {
	ID   string `json:"apiId"`
	Name string `json:"apiName"`
}
