package backup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/auraarchive/aura/internal/catalog"
)

// WriteFile exports the catalog to path as a pretty-printed JSON array, the
// manual-export counterpart of the cloud object.
func WriteFile(path string, items []catalog.Item) error {
	if items == nil {
		items = []catalog.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}

// ReadFile imports a catalog from path. Any JSON array of items is
// accepted; anything else is an ErrInvalidBackup, reported and non-fatal.
func ReadFile(path string) ([]catalog.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	return decodeItems(data)
}
