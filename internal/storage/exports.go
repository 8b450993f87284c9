package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExportSink ingests CSV exports. memory.InventoryRepository satisfies it.
type ExportSink interface {
	LoadMovementsCSV(in io.Reader) (int, error)
	LoadStockCSV(in io.Reader) (int, error)
}

// ExportKind classifies an export object by its file name.
type ExportKind string

const (
	ExportMovements ExportKind = "movements"
	ExportStock     ExportKind = "stock"
	ExportUnknown   ExportKind = ""
)

// ClassifyExport maps "movements*.csv" and "stock*.csv" (or "inventory_levels*.csv") to a kind.
func ClassifyExport(key string) ExportKind {
	base := strings.ToLower(path.Base(key))
	if path.Ext(base) != ".csv" {
		return ExportUnknown
	}
	switch {
	case strings.HasPrefix(base, "movements"), strings.HasPrefix(base, "inventory_movements"):
		return ExportMovements
	case strings.HasPrefix(base, "stock"), strings.HasPrefix(base, "inventory_levels"):
		return ExportStock
	default:
		return ExportUnknown
	}
}

// LoadExports streams every recognised CSV export under prefix into sink and
// returns the number of rows loaded per kind.
func LoadExports(ctx context.Context, store ObjectStorage, prefix string, sink ExportSink) (map[ExportKind]int, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	loaded := map[ExportKind]int{ExportMovements: 0, ExportStock: 0}
	for _, object := range objects {
		kind := ClassifyExport(object.Key)
		if kind == ExportUnknown {
			log.Debug().Str("key", object.Key).Msg("skipping unrecognised export")
			continue
		}

		n, err := loadExport(ctx, store, object.Key, kind, sink)
		if err != nil {
			return nil, err
		}
		loaded[kind] += n
		log.Info().Str("key", object.Key).Str("kind", string(kind)).Int("rows", n).Msg("loaded export")
	}
	return loaded, nil
}

func loadExport(ctx context.Context, store ObjectStorage, key string, kind ExportKind, sink ExportSink) (int, error) {
	reader, err := store.OpenObject(ctx, key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var n int
	if kind == ExportMovements {
		n, err = sink.LoadMovementsCSV(reader)
	} else {
		n, err = sink.LoadStockCSV(reader)
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	return n, nil
}
