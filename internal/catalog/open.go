package catalog

import (
	"fmt"

	"supplymatch/internal/config"
	"supplymatch/internal/storage"
)

// OpenSource returns the catalog selected by CATALOG_SOURCE and a close func.
func OpenSource(cfg config.Config) (Source, func() error, error) {
	switch cfg.CatalogSource {
	case "", "http":
		return NewClient(cfg), func() error { return nil }, nil
	case "sqlite":
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported CATALOG_SOURCE: %s", cfg.CatalogSource)
	}
}
