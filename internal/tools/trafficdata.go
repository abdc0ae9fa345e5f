// internal/tools/trafficdata.go
package tools

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var trafficDataSchema = models.Schema{
	{Name: "AGG_WINDOW_START_TIME", Type: "timestamp"},
	{Name: "apiId", Type: "string"},
	{Name: "totalHits", Type: "long"},
	{Name: "responseCode", Type: "long"},
}

// TrafficDataAdapter fetches hit totals grouped by aggregation window and
// response code.
type TrafficDataAdapter struct {
	client *elasticsearch.Client
	scope  scope
	logger logger.Logger
}

func NewTrafficDataAdapter(client *elasticsearch.Client, organizationID, environmentID string, log logger.Logger) *TrafficDataAdapter {
	return &TrafficDataAdapter{
		client: client,
		scope:  scope{OrganizationID: organizationID, EnvironmentID: environmentID},
		logger: log.WithFields(map[string]interface{}{"tool": string(ToolTrafficData)}),
	}
}

func (a *TrafficDataAdapter) ID() ToolID { return ToolTrafficData }

func (a *TrafficDataAdapter) Describe() string {
	return "API traffic volume: total hits per aggregation window and response code."
}

func (a *TrafficDataAdapter) Fetch(ctx context.Context, target models.Target, window models.TimeRange) (models.Dataset, error) {
	aggs := map[string]interface{}{
		"byWindow": map[string]interface{}{
			"composite": map[string]interface{}{
				"size": maxFetchSize,
				"sources": []interface{}{
					map[string]interface{}{
						"window": map[string]interface{}{
							"terms": map[string]interface{}{"field": timestampField},
						},
					},
					map[string]interface{}{
						"responseCode": map[string]interface{}{
							"terms": map[string]interface{}{"field": "responseCode"},
						},
					},
				},
			},
			"aggs": map[string]interface{}{
				"totalHits": map[string]interface{}{
					"sum": map[string]interface{}{"field": "hitCount"},
				},
			},
		},
	}

	aggregations, err := searchAggs(ctx, a.client, indexResponseCodeSummary, boolFilter(a.scope, target, window), aggs)
	if err != nil {
		return models.Dataset{}, wrapSourceError(ctx, a.ID(), err)
	}

	var apiID interface{}
	if !target.IsNoData() {
		apiID = target.ID
	}

	docs := compositeBuckets(aggregations, "byWindow", func(key map[string]interface{}, bucket map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"AGG_WINDOW_START_TIME": key["window"],
			"apiId":                 apiID,
			"totalHits":             sumValue(bucket, "totalHits"),
			"responseCode":          key["responseCode"],
		}
	})

	a.logger.Debug("fetched traffic buckets", map[string]interface{}{"count": len(docs)})

	return models.Dataset{
		ToolID:  string(a.ID()),
		Records: normalizeAll(docs, trafficDataSchema),
		Schema:  trafficDataSchema,
	}, nil
}

// compositeBuckets flattens a composite aggregation into row maps.
func compositeBuckets(aggregations map[string]interface{}, name string, row func(key, bucket map[string]interface{}) map[string]interface{}) []map[string]interface{} {
	agg, _ := aggregations[name].(map[string]interface{})
	if agg == nil {
		return nil
	}
	rawBuckets, _ := agg["buckets"].([]interface{})

	docs := make([]map[string]interface{}, 0, len(rawBuckets))
	for _, raw := range rawBuckets {
		bucket, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := bucket["key"].(map[string]interface{})
		docs = append(docs, row(key, bucket))
	}
	return docs
}

// sumValue extracts the value of a sum sub-aggregation.
func sumValue(bucket map[string]interface{}, name string) float64 {
	sub, _ := bucket[name].(map[string]interface{})
	if sub == nil {
		return 0
	}
	v, _ := sub["value"].(float64)
	return v
}
