package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/shopspring/decimal"
)

// MovementRepository reads demand history from inventory_movements and
// on-hand quantities from inventory_levels.
type MovementRepository struct {
	db    *DB
	clock domain.Clock
}

func NewMovementRepository(db *DB, clock domain.Clock) *MovementRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &MovementRepository{db: db, clock: clock}
}

type demandRow struct {
	Date     time.Time       `db:"movement_date"`
	Quantity decimal.Decimal `db:"quantity"`
}

type stockRow struct {
	ProductID  string          `db:"product_id"`
	LocationID string          `db:"location_id"`
	Quantity   decimal.Decimal `db:"quantity"`
}

const historyQuery = `
	SELECT
		date_trunc('day', movement_date) AS movement_date,
		SUM(quantity) AS quantity
	FROM inventory_movements
	WHERE product_id = $1
		AND location_id = $2
		AND movement_type = 'OUT'
		AND ($3::timestamptz IS NULL OR movement_date >= $3)
	GROUP BY 1
	ORDER BY 1
`

// FetchHistory returns daily outbound totals, ascending. daysBack <= 0 returns the full history.
func (r *MovementRepository) FetchHistory(ctx context.Context, productID, locationID string, daysBack int) ([]domain.DemandObservation, error) {
	var since sql.NullTime
	if daysBack > 0 {
		since = sql.NullTime{Time: r.clock.Now().AddDate(0, 0, -daysBack), Valid: true}
	}

	var rows []demandRow
	if err := r.db.selectContext(ctx, &rows, historyQuery, productID, locationID, since); err != nil {
		return nil, fmt.Errorf("query history %s@%s: %w", productID, locationID, err)
	}

	history := make([]domain.DemandObservation, len(rows))
	for i, row := range rows {
		history[i] = domain.DemandObservation{
			Date:     row.Date.UTC(),
			Quantity: row.Quantity.InexactFloat64(),
		}
	}
	return history, nil
}

// CurrentStock returns the on-hand quantity or domain.ErrNotFound
func (r *MovementRepository) CurrentStock(ctx context.Context, productID, locationID string) (float64, error) {
	var qty decimal.Decimal
	query := `SELECT quantity FROM inventory_levels WHERE product_id = $1 AND location_id = $2`
	if err := r.db.getContext(ctx, &qty, query, productID, locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("stock for %s@%s: %w", productID, locationID, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("query stock %s@%s: %w", productID, locationID, err)
	}
	return qty.InexactFloat64(), nil
}

// ListStock returns every stock level at a location, sorted by product
func (r *MovementRepository) ListStock(ctx context.Context, locationID string) ([]domain.StockLevel, error) {
	var rows []stockRow
	query := `
		SELECT product_id, location_id, quantity
		FROM inventory_levels
		WHERE location_id = $1
		ORDER BY product_id
	`
	if err := r.db.selectContext(ctx, &rows, query, locationID); err != nil {
		return nil, fmt.Errorf("list stock at %s: %w", locationID, err)
	}

	levels := make([]domain.StockLevel, len(rows))
	for i, row := range rows {
		levels[i] = domain.StockLevel{
			ProductID:  row.ProductID,
			LocationID: row.LocationID,
			Quantity:   row.Quantity.InexactFloat64(),
		}
	}
	return levels, nil
}

// ListProductIDs returns every product with stock or movements at a location
func (r *MovementRepository) ListProductIDs(ctx context.Context, locationID string) ([]string, error) {
	ids := []string{}
	query := `
		SELECT product_id FROM inventory_levels WHERE location_id = $1
		UNION
		SELECT product_id FROM inventory_movements WHERE location_id = $1
		ORDER BY 1
	`
	if err := r.db.selectContext(ctx, &ids, query, locationID); err != nil {
		return nil, fmt.Errorf("list products at %s: %w", locationID, err)
	}
	return ids, nil
}
