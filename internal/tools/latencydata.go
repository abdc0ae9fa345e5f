// internal/tools/latencydata.go
package tools

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var latencyDataSchema = models.Schema{
	{Name: "AGG_WINDOW_START_TIME", Type: "timestamp"},
	{Name: "apiId", Type: "string"},
	{Name: "customerId", Type: "string"},
	{Name: "responseLatencyMedian", Type: "double"},
	{Name: "backendLatencyMedian", Type: "double"},
}

// LatencyDataAdapter fetches per-window median latency rows.
type LatencyDataAdapter struct {
	client *elasticsearch.Client
	scope  scope
	logger logger.Logger
}

func NewLatencyDataAdapter(client *elasticsearch.Client, organizationID, environmentID string, log logger.Logger) *LatencyDataAdapter {
	return &LatencyDataAdapter{
		client: client,
		scope:  scope{OrganizationID: organizationID, EnvironmentID: environmentID},
		logger: log.WithFields(map[string]interface{}{"tool": string(ToolLatencyData)}),
	}
}

func (a *LatencyDataAdapter) ID() ToolID { return ToolLatencyData }

func (a *LatencyDataAdapter) Describe() string {
	return "Per-window API latency: median response and backend latency in milliseconds."
}

func (a *LatencyDataAdapter) Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error) {
	fields := make([]string, 0, len(latencyDataSchema))
	for _, f := range latencyDataSchema {
		fields = append(fields, f.Name)
	}

	docs, err := searchDocs(ctx, a.client, indexTargetResponseSummary, boolFilter(a.scope, target, window), fields)
	if err != nil {
		return models.Dataset{}, wrapSourceError(ctx, a.ID(), err)
	}

	a.logger.Debug("fetched latency rows", map[string]interface{}{"count": len(docs)})

	return models.Dataset{
		ToolID:  string(a.ID()),
		Records: normalizeAll(docs, latencyDataSchema),
		Schema:  latencyDataSchema,
	}, nil
}
