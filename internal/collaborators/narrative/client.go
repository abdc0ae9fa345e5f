// internal/collaborators/narrative/client.go
package narrative

import (
	"context"
	"errors"
	"fmt"

	httpclient "api-insights/internal/common/http"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var ErrNarrativeCompositionFailed = errors.New("NARRATIVE_COMPOSITION_FAILED")

type request struct {
	UserQuery    string                 `json:"userQuery"`
	Model        string                 `json:"model,omitempty"`
	Result       models.ExecutionResult `json:"result"`
	ChartPresent bool                   `json:"chartPresent"`
}

type response struct {
	Text string `json:"text"`
}

// Client turns a sanitized analysis result into user-facing text.
type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.MaxRetries, config.APIKey),
		logger: log.WithFields(map[string]interface{}{"collaborator": "narrative"}),
	}
}

// Compose sends the sanitized result (chart already stripped by the
// caller) and returns the collaborator's narrative as-is.
func (c *Client) Compose(ctx context.Context, userQuery string, result models.ExecutionResult, chartPresent bool) (string, error) {
	req := request{
		UserQuery:    userQuery,
		Model:        c.config.Model,
		Result:       result,
		ChartPresent: chartPresent,
	}

	var resp response
	if err := c.http.PostJSON(ctx, c.config.GenAIBaseURL+"/api/ai/compose-narrative", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNarrativeCompositionFailed, err)
	}
	if resp.Text == "" {
		return "", fmt.Errorf("%w: empty narrative", ErrNarrativeCompositionFailed)
	}

	c.logger.Info("narrative composed", map[string]interface{}{
		"length":       len(resp.Text),
		"chartPresent": chartPresent,
	})

	return resp.Text, nil
}
