// internal/collaborators/codegen/client.go
package codegen

import (
	"context"
	"errors"
	"fmt"

	httpclient "api-insights/internal/common/http"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var ErrSynthesisFailed = errors.New("SYNTHESIS_FAILED")

// Client builds one analysis program for an entire dataset bundle via the
// program-generation collaborator.
type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.MaxRetries, config.APIKey),
		logger: log.WithFields(map[string]interface{}{"collaborator": "codegen"}),
	}
}

// Generate sends the schema descriptors (never raw rows), the user query
// and the fixed execution-contract constraints, then extracts the program
// source from the reply's fenced code block.
func (c *Client) Generate(ctx context.Context, userQuery string, schemas map[string]models.Schema, window models.TimeRange) (*models.SynthesizedProgram, error) {
	req := request{
		UserQuery:   userQuery,
		Model:       c.config.Model,
		Schemas:     schemas,
		Constraints: buildConstraints(window),
	}

	var resp response
	if err := c.http.PostJSON(ctx, c.config.GenAIBaseURL+"/api/ai/generate-analysis", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	source, err := ExtractCodeBlock(resp.Text)
	if err != nil {
		c.logger.Error("no code block in generation reply", map[string]interface{}{
			"replyLength": len(resp.Text),
		})
		return nil, err
	}

	c.logger.Info("program synthesized", map[string]interface{}{
		"sourceBytes": len(source),
		"schemaCount": len(schemas),
	})

	return &models.SynthesizedProgram{
		SourceText: source,
		Provenance: resp.Text,
	}, nil
}
