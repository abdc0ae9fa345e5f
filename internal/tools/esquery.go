// internal/tools/esquery.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"api-insights/internal/models"
)

// Telemetry indices. These mirror the source system's aggregate tables.
const (
	indexResponseCodeSummary   = "analytics-response-code-summary"
	indexProxyErrorSummary     = "analytics-proxy-error-summary"
	indexTargetResponseSummary = "analytics-target-response-summary"
)

// timestampField is the aggregation-window start column shared by all
// telemetry indices.
const timestampField = "AGG_WINDOW_START_TIME"

// maxFetchSize bounds one adapter fetch. Telemetry rows are hourly
// aggregates, so this covers multi-month windows.
const maxFetchSize = 10000

// scope pins every query to one organization and deployment environment.
type scope struct {
	OrganizationID string
	EnvironmentID  string
}

// boolFilter assembles the filter clauses common to all adapters: tenant
// scope, the analysis window, and the apiId term when the target is
// concrete. The TargetNoData sentinel omits the term entirely.
func boolFilter(sc scope, target models.Target, window models.TimeRange) []interface{} {
	filters := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"customerId": sc.OrganizationID},
		},
		map[string]interface{}{
			"range": map[string]interface{}{
				timestampField: map[string]interface{}{
					"gte": window.Start.UTC().Format(time.RFC3339),
					"lt":  window.End.UTC().Format(time.RFC3339),
				},
			},
		},
	}

	if sc.EnvironmentID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"deploymentId": sc.EnvironmentID},
		})
	}

	if !target.IsNoData() {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"apiId": target.ID},
		})
	}

	return filters
}

// searchDocs runs a filtered search ordered by window start time and
// returns the raw _source documents.
func searchDocs(ctx context.Context, esClient *elasticsearch.Client, index string, filters []interface{}, fields []string) ([]map[string]interface{}, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{timestampField: map[string]interface{}{"order": "asc"}},
		},
		"_source": fields,
	}

	body, _ := json.Marshal(queryBody)
	size := maxFetchSize

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// searchAggs runs a zero-hit search carrying only aggregations and
// returns the raw aggregations object.
func searchAggs(ctx context.Context, esClient *elasticsearch.Client, index string, filters []interface{}, aggs map[string]interface{}) (map[string]interface{}, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"aggs": aggs,
	}

	body, _ := json.Marshal(queryBody)
	size := 0

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("aggregation query failed: %s", res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	aggregations, _ := r["aggregations"].(map[string]interface{})
	if aggregations == nil {
		aggregations = map[string]interface{}{}
	}
	return aggregations, nil
}

// wrapSourceError maps a fetch failure to the adapter error contract.
func wrapSourceError(ctx context.Context, id ToolID, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s", ErrSourceTimeout, id)
	}
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, id, err)
}
