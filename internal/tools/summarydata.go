// internal/tools/summarydata.go
package tools

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var summaryDataSchema = models.Schema{
	{Name: "apiId", Type: "string"},
	{Name: "totalHits", Type: "long"},
	{Name: "errorHits", Type: "long"},
	{Name: "totalLatency", Type: "double"},
}

// SummaryDataAdapter fetches one whole-window rollup row: traffic totals
// from the response-code index combined with latency totals from the
// target-response index.
type SummaryDataAdapter struct {
	client *elasticsearch.Client
	scope  scope
	logger logger.Logger
}

func NewSummaryDataAdapter(client *elasticsearch.Client, organizationID, environmentID string, log logger.Logger) *SummaryDataAdapter {
	return &SummaryDataAdapter{
		client: client,
		scope:  scope{OrganizationID: organizationID, EnvironmentID: environmentID},
		logger: log.WithFields(map[string]interface{}{"tool": string(ToolSummaryData)}),
	}
}

func (a *SummaryDataAdapter) ID() ToolID { return ToolSummaryData }

func (a *SummaryDataAdapter) Describe() string {
	return "Whole-window rollup: total hits, error hits (4xx/5xx) and cumulative latency."
}

func (a *SummaryDataAdapter) Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error) {
	filters := boolFilter(a.scope, target, window)

	trafficAggs := map[string]interface{}{
		"totalHits": map[string]interface{}{
			"sum": map[string]interface{}{"field": "hitCount"},
		},
		"errors": map[string]interface{}{
			"filter": map[string]interface{}{
				"range": map[string]interface{}{
					"responseCode": map[string]interface{}{"gte": 400},
				},
			},
			"aggs": map[string]interface{}{
				"errorHits": map[string]interface{}{
					"sum": map[string]interface{}{"field": "hitCount"},
				},
			},
		},
	}

	traffic, err := searchAggs(ctx, a.client, indexResponseCodeSummary, filters, trafficAggs)
	if err != nil {
		return models.Dataset{}, wrapSourceError(ctx, a.ID(), err)
	}

	latencyAggs := map[string]interface{}{
		"responseLatency": map[string]interface{}{
			"sum": map[string]interface{}{"field": "responseLatencyMedian"},
		},
		"backendLatency": map[string]interface{}{
			"sum": map[string]interface{}{"field": "backendLatencyMedian"},
		},
	}

	latency, err := searchAggs(ctx, a.client, indexTargetResponseSummary, filters, latencyAggs)
	if err != nil {
		return models.Dataset{}, wrapSourceError(ctx, a.ID(), err)
	}

	totalHits := sumValue(traffic, "totalHits")
	errorHits := 0.0
	if errs, ok := traffic["errors"].(map[string]interface{}); ok {
		errorHits = sumValue(errs, "errorHits")
	}
	totalLatency := sumValue(latency, "responseLatency") + sumValue(latency, "backendLatency")

	// Records stays an empty slice, never nil, so an empty window still
	// serializes as a list for the analysis program.
	dataset := models.Dataset{
		ToolID:  string(a.ID()),
		Schema:  summaryDataSchema,
		Records: []models.Record{},
	}

	// No traffic at all means no rows in the window: keep the dataset
	// empty so the "no data for window" short-circuit can observe it.
	if totalHits == 0 && totalLatency == 0 {
		a.logger.Debug("empty summary window", nil)
		return dataset, nil
	}

	var apiID interface{}
	if !target.IsNoData() {
		apiID = target.ID
	}

	dataset.Records = []models.Record{{
		"apiId":        apiID,
		"totalHits":    totalHits,
		"errorHits":    errorHits,
		"totalLatency": totalLatency,
	}}

	a.logger.Debug("fetched summary", map[string]interface{}{
		"totalHits": totalHits,
		"errorHits": errorHits,
	})

	return dataset, nil
}
