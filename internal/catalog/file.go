// internal/catalog/file.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "api-insights/internal/common/errors"
)

// Document is the on-disk catalog format. It doubles as the exchange
// shape for the catalog-updater tool.
type Document struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Tools       []Entry `json:"tools"`
}

// LoadDocument reads and parses a catalog file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed catalog file %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes the document back to disk, creating the directory if
// needed.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the document for structural problems: duplicate or
// missing identifiers and entries with no description.
func (d *Document) Validate() error {
	if len(d.Tools) == 0 {
		return fmt.Errorf("catalog contains no tools")
	}
	ids := make(map[string]bool, len(d.Tools))
	for _, tool := range d.Tools {
		if tool.ID == "" {
			return fmt.Errorf("tool missing required field: id")
		}
		if ids[tool.ID] {
			return fmt.Errorf("duplicate tool id: %s", tool.ID)
		}
		ids[tool.ID] = true
		if tool.DisplayName == "" {
			return fmt.Errorf("tool %s missing required field: displayName", tool.ID)
		}
		if tool.Description == "" {
			return fmt.Errorf("tool %s missing required field: description", tool.ID)
		}
	}
	return nil
}

// FileStore serves the tool catalog from a bundled JSON file. It is the
// fallback for deployments without a catalog database and rereads the
// file on every List, so edits take effect without a restart.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	doc, err := LoadDocument(s.path)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	return doc.Tools, nil
}
