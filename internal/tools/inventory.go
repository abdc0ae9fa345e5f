// internal/tools/inventory.go
package tools

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

// inventoryLookback bounds the API discovery query. APIs that received
// no traffic in this period are treated as retired.
const inventoryLookback = 90 * 24 * time.Hour

// Inventory discovers the APIs known to the telemetry store for one
// organization. The intent resolver needs this list to map free-text
// API names onto identifiers.
type Inventory struct {
	client *elasticsearch.Client
	scope  scope
	logger logger.Logger
}

func NewInventory(client *elasticsearch.Client, organizationID, environmentID string, log logger.Logger) *Inventory {
	return &Inventory{
		client: client,
		scope:  scope{OrganizationID: organizationID, EnvironmentID: environmentID},
		logger: log.WithFields(map[string]interface{}{"component": "inventory"}),
	}
}

// List returns the distinct apiId/apiName pairs seen in recent traffic,
// ordered by identifier.
func (inv *Inventory) List(ctx context.Context) ([]models.APIInfo, error) {
	now := time.Now().UTC()
	window := models.TimeRange{Start: now.Add(-inventoryLookback), End: now}
	filters := boolFilter(inv.scope, models.Target{ID: models.TargetNoData}, window)

	aggs := map[string]interface{}{
		"apis": map[string]interface{}{
			"composite": map[string]interface{}{
				"size": maxFetchSize,
				"sources": []interface{}{
					map[string]interface{}{
						"apiId": map[string]interface{}{
							"terms": map[string]interface{}{"field": "apiId"},
						},
					},
					map[string]interface{}{
						"apiName": map[string]interface{}{
							"terms": map[string]interface{}{"field": "apiName"},
						},
					},
				},
			},
		},
	}

	aggregations, err := searchAggs(ctx, inv.client, indexResponseCodeSummary, filters, aggs)
	if err != nil {
		return nil, wrapSourceError(ctx, "inventory", err)
	}

	rows := compositeBuckets(aggregations, "apis", func(key, _ map[string]interface{}) map[string]interface{} {
		return key
	})

	apis := make([]models.APIInfo, 0, len(rows))
	for _, row := range rows {
		id, _ := row["apiId"].(string)
		name, _ := row["apiName"].(string)
		if id == "" {
			continue
		}
		apis = append(apis, models.APIInfo{ID: id, Name: name})
	}

	inv.logger.Debug("listed api inventory", map[string]interface{}{"count": len(apis)})
	return apis, nil
}
