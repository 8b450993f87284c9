package memory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const csvDateLayout = "2006-01-02"

var (
	movementColumns = []string{"product_id", "location_id", "date", "quantity"}
	stockColumns    = []string{"product_id", "location_id", "quantity"}
)

// LoadMovementsCSV reads rows of product_id,location_id,date,quantity
func (r *InventoryRepository) LoadMovementsCSV(in io.Reader) (int, error) {
	rows, err := readCSV(in, movementColumns)
	if err != nil {
		return 0, fmt.Errorf("read movements csv: %w", err)
	}

	for i, row := range rows {
		date, err := time.Parse(csvDateLayout, row["date"])
		if err != nil {
			return 0, fmt.Errorf("movements csv line %d: invalid date %q: %w", i+2, row["date"], err)
		}
		qty, err := parseQuantity(row["quantity"])
		if err != nil {
			return 0, fmt.Errorf("movements csv line %d: %w", i+2, err)
		}
		r.AddMovement(row["product_id"], row["location_id"], date, qty)
	}
	return len(rows), nil
}

// LoadStockCSV reads rows of product_id,location_id,quantity
func (r *InventoryRepository) LoadStockCSV(in io.Reader) (int, error) {
	rows, err := readCSV(in, stockColumns)
	if err != nil {
		return 0, fmt.Errorf("read stock csv: %w", err)
	}

	for i, row := range rows {
		qty, err := parseQuantity(row["quantity"])
		if err != nil {
			return 0, fmt.Errorf("stock csv line %d: %w", i+2, err)
		}
		r.SetStock(row["product_id"], row["location_id"], qty)
	}
	return len(rows), nil
}

func parseQuantity(raw string) (float64, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", raw, err)
	}
	if qty.IsNegative() {
		return 0, fmt.Errorf("quantity %s must not be negative", qty)
	}
	return qty.InexactFloat64(), nil
}

// readCSV maps every data row to its header columns and checks the required ones exist.
func readCSV(in io.Reader, required []string) ([]map[string]string, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(required))
		for _, col := range required {
			row[col] = strings.TrimSpace(record[index[col]])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
