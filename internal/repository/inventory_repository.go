package repository

import (
	"context"

	"github.com/andresuchdata/stockopt/internal/domain"
)

// HistoryRepository supplies outbound movement history. Observations are
// returned ascending by date; days without movement may be omitted.
type HistoryRepository interface {
	FetchHistory(ctx context.Context, productID, locationID string, daysBack int) ([]domain.DemandObservation, error)
}

// StockRepository supplies current on-hand quantities.
type StockRepository interface {
	CurrentStock(ctx context.Context, productID, locationID string) (float64, error)
	ListStock(ctx context.Context, locationID string) ([]domain.StockLevel, error)
	ListProductIDs(ctx context.Context, locationID string) ([]string, error)
}

// InventoryRepository is the full read surface the engine's callers need.
type InventoryRepository interface {
	HistoryRepository
	StockRepository
}
