// internal/catalog/postgres.go
package catalog

import (
	"context"
	"errors"

	"api-insights/internal/common/database"
	apperrors "api-insights/internal/common/errors"
)

var ErrNoCatalogStore = errors.New("CATALOG_UNAVAILABLE")

const listToolsQuery = `
	SELECT id, display_name, description, enabled
	FROM tool_catalog
	ORDER BY id`

// PostgresStore serves the tool catalog from the tool_catalog table.
type PostgresStore struct {
	client *database.PostgresClient
}

func NewPostgresStore(client *database.PostgresClient) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.client.Query(ctx, listToolsQuery)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Description, &e.Enabled); err != nil {
			return nil, apperrors.NewCatalogUnavailableError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	return entries, nil
}
