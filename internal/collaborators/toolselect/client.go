// internal/collaborators/toolselect/client.go
package toolselect

import (
	"context"
	"errors"
	"fmt"

	httpclient "api-insights/internal/common/http"
	"api-insights/internal/common/logger"
)

var ErrToolSelectionFailed = errors.New("TOOL_SELECTION_FAILED")

// Client asks the selection collaborator which telemetry tools apply to a
// query. An empty selection is a valid reply, not an error.
type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.MaxRetries, config.APIKey),
		logger: log.WithFields(map[string]interface{}{"collaborator": "toolselect"}),
	}
}

// Select returns the ordered tool identifiers the collaborator picked.
// Identifiers are returned verbatim; the caller drops unknown ones at the
// registry boundary.
func (c *Client) Select(ctx context.Context, userQuery string, registry []ToolDescriptor) ([]string, error) {
	req := request{
		UserQuery: userQuery,
		Model:     c.config.Model,
		Registry:  registry,
	}

	var resp response
	if err := c.http.PostJSON(ctx, c.config.GenAIBaseURL+"/api/ai/select-tools", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolSelectionFailed, err)
	}

	c.logger.Info("tools selected", map[string]interface{}{
		"selected": resp.SelectedTools,
	})

	return resp.SelectedTools, nil
}
