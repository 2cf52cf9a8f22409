package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"supplymatch/internal"
	"supplymatch/internal/logging"
	"supplymatch/internal/storage"
)

// Source is anything that can list suppliers and their items.
type Source interface {
	ListSuppliers(ctx context.Context) ([]internal.Supplier, error)
	ListItems(ctx context.Context, supplier string) ([]internal.Item, error)
}

type SyncStats struct {
	Suppliers int
	Items     int
}

// SyncService copies a catalog into the local sqlite mirror.
type SyncService struct {
	db     *storage.DB
	source Source
}

func NewSyncService(db *storage.DB, source Source) *SyncService {
	return &SyncService{db: db, source: source}
}

func (s *SyncService) Sync(ctx context.Context) (SyncStats, error) {
	suppliers, err := s.source.ListSuppliers(ctx)
	if err != nil {
		return SyncStats{}, err
	}
	itemsBySupplier := make(map[string][]internal.Item, len(suppliers))
	for _, supplier := range suppliers {
		items, err := s.source.ListItems(ctx, supplier.Name)
		if err != nil {
			return SyncStats{}, err
		}
		itemsBySupplier[supplier.Name] = items
	}
	return s.store(ctx, "catalog.last_sync", suppliers, itemsBySupplier)
}

// ImportFile loads a json-server db.json ({"suppliers": [...], "items": [...]}).
func (s *SyncService) ImportFile(ctx context.Context, path string) (SyncStats, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return SyncStats{}, err
	}

	var payload struct {
		Suppliers []map[string]any `json:"suppliers"`
		Items     []map[string]any `json:"items"`
	}
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return SyncStats{}, fmt.Errorf("decode %s: %w", path, err)
	}

	log := logging.FromContext(ctx)
	suppliers := make([]internal.Supplier, 0, len(payload.Suppliers))
	for _, raw := range payload.Suppliers {
		supplier, err := toSupplier(raw)
		if err != nil {
			log.Warn().Err(err).Msg("skipping supplier in import file")
			continue
		}
		suppliers = append(suppliers, supplier)
	}

	itemsBySupplier := map[string][]internal.Item{}
	for i, raw := range payload.Items {
		item, err := toItem(raw)
		if errors.Is(err, errNoDescription) {
			log.Warn().Err(err).Msg("skipping item in import file")
			continue
		}
		if err != nil {
			return SyncStats{}, fmt.Errorf("%s: item %d: %w", path, i, err)
		}
		itemsBySupplier[item.Supplier] = append(itemsBySupplier[item.Supplier], item)
	}

	return s.store(ctx, "catalog.last_import", suppliers, itemsBySupplier)
}

// store replaces the whole mirror: suppliers missing from the snapshot are
// removed together with their items.
func (s *SyncService) store(ctx context.Context, key string, suppliers []internal.Supplier, itemsBySupplier map[string][]internal.Item) (SyncStats, error) {
	if err := s.db.ReplaceSuppliers(ctx, suppliers); err != nil {
		return SyncStats{}, err
	}

	stats := SyncStats{Suppliers: len(suppliers)}
	for _, supplier := range suppliers {
		items := itemsBySupplier[supplier.Name]
		if err := s.db.ReplaceItems(ctx, supplier.Name, items); err != nil {
			return SyncStats{}, err
		}
		stats.Items += len(items)
	}

	if err := s.db.SetMetadata(ctx, key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return stats, fmt.Errorf("record %s: %w", key, err)
	}
	return stats, nil
}
