// internal/catalog/catalog.go
package catalog

import (
	"context"

	"api-insights/internal/common/logger"
)

// Entry describes one tool as presented to the selection collaborator.
// The catalog is the single source of the tool vocabulary: a tool absent
// from it can never be selected.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Store lists catalog entries from one backing source.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
}

// Service reads the tool catalog from a primary store and falls back to
// a secondary one when the primary is unavailable. In the usual
// deployment the primary is Postgres and the fallback a bundled file.
type Service struct {
	primary  Store
	fallback Store
	logger   logger.Logger
}

func NewService(primary, fallback Store, log logger.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

// List returns the enabled catalog entries. A primary store failure is
// logged and absorbed as long as the fallback can serve.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.listRaw(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}
	return enabled, nil
}

func (s *Service) listRaw(ctx context.Context) ([]Entry, error) {
	if s.primary != nil {
		entries, err := s.primary.List(ctx)
		if err == nil {
			return entries, nil
		}
		if s.fallback == nil {
			return nil, err
		}
		s.logger.Warn("primary catalog store unavailable, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if s.fallback == nil {
		return nil, ErrNoCatalogStore
	}
	return s.fallback.List(ctx)
}
