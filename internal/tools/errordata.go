// internal/tools/errordata.go
package tools

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var errorDataSchema = models.Schema{
	{Name: "AGG_WINDOW_START_TIME", Type: "timestamp"},
	{Name: "apiId", Type: "string"},
	{Name: "hitCount", Type: "long"},
	{Name: "responseCode", Type: "long"},
	{Name: "errorType", Type: "string"},
	{Name: "errorCode", Type: "string"},
}

// ErrorDataAdapter fetches per-window proxy error rows.
type ErrorDataAdapter struct {
	client *elasticsearch.Client
	scope  scope
	logger logger.Logger
}

func NewErrorDataAdapter(client *elasticsearch.Client, organizationID, environmentID string, log logger.Logger) *ErrorDataAdapter {
	return &ErrorDataAdapter{
		client: client,
		scope:  scope{OrganizationID: organizationID, EnvironmentID: environmentID},
		logger: log.WithFields(map[string]interface{}{"tool": string(ToolErrorData)}),
	}
}

func (a *ErrorDataAdapter) ID() ToolID { return ToolErrorData }

func (a *ErrorDataAdapter) Describe() string {
	return "Per-window API error rows: response code, error type and error code with hit counts."
}

func (a *ErrorDataAdapter) Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error) {
	fields := make([]string, 0, len(errorDataSchema))
	for _, f := range errorDataSchema {
		fields = append(fields, f.Name)
	}

	docs, err := searchDocs(ctx, a.client, indexProxyErrorSummary, boolFilter(a.scope, target, window), fields)
	if err != nil {
		return models.Dataset{}, wrapSourceError(ctx, a.ID(), err)
	}

	a.logger.Debug("fetched error rows", map[string]interface{}{"count": len(docs)})

	return models.Dataset{
		ToolID:  string(a.ID()),
		Records: normalizeAll(docs, errorDataSchema),
		Schema:  errorDataSchema,
	}, nil
}
