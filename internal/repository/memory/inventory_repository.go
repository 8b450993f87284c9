package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/repository"
)

type key struct {
	productID  string
	locationID string
}

// InventoryRepository provides in-memory movement history and stock levels
type InventoryRepository struct {
	mu        sync.RWMutex
	clock     domain.Clock
	movements map[key][]domain.DemandObservation
	stock     map[key]float64
}

// NewInventoryRepository creates an empty repository. The clock anchors the
// lookback window of FetchHistory.
func NewInventoryRepository(clock domain.Clock) *InventoryRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &InventoryRepository{
		clock:     clock,
		movements: make(map[key][]domain.DemandObservation),
		stock:     make(map[key]float64),
	}
}

// Verify interface compliance
var _ repository.InventoryRepository = (*InventoryRepository)(nil)

// AddMovement records outbound quantity for a product at a location on a date
func (r *InventoryRepository) AddMovement(productID, locationID string, date time.Time, quantity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{productID, locationID}
	r.movements[k] = append(r.movements[k], domain.DemandObservation{Date: date, Quantity: quantity})
}

// SetStock sets the on-hand quantity for a product at a location
func (r *InventoryRepository) SetStock(productID, locationID string, quantity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stock[key{productID, locationID}] = quantity
}

// FetchHistory returns observations within the last daysBack days, ascending.
// daysBack <= 0 returns the full history.
func (r *InventoryRepository) FetchHistory(ctx context.Context, productID, locationID string, daysBack int) ([]domain.DemandObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var since time.Time
	if daysBack > 0 {
		since = r.clock.Now().AddDate(0, 0, -daysBack)
	}

	var history []domain.DemandObservation
	for _, obs := range r.movements[key{productID, locationID}] {
		if daysBack > 0 && obs.Date.Before(since) {
			continue
		}
		history = append(history, obs)
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
	return history, nil
}

// CurrentStock returns the on-hand quantity or domain.ErrNotFound
func (r *InventoryRepository) CurrentStock(ctx context.Context, productID, locationID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	qty, ok := r.stock[key{productID, locationID}]
	if !ok {
		return 0, fmt.Errorf("stock for %s@%s: %w", productID, locationID, domain.ErrNotFound)
	}
	return qty, nil
}

// ListStock returns every stock level at a location, sorted by product
func (r *InventoryRepository) ListStock(ctx context.Context, locationID string) ([]domain.StockLevel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	levels := []domain.StockLevel{}
	for k, qty := range r.stock {
		if k.locationID != locationID {
			continue
		}
		levels = append(levels, domain.StockLevel{ProductID: k.productID, LocationID: k.locationID, Quantity: qty})
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].ProductID < levels[j].ProductID
	})
	return levels, nil
}

// ListProductIDs returns every product with stock or movements at a location
func (r *InventoryRepository) ListProductIDs(ctx context.Context, locationID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range r.stock {
		if k.locationID == locationID {
			seen[k.productID] = struct{}{}
		}
	}
	for k := range r.movements {
		if k.locationID == locationID {
			seen[k.productID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
