package optimizer

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/stats"
)

const (
	// MethodEOQSafetyStock labels results produced by Optimizer.
	MethodEOQSafetyStock = "eoq_normal_safety_stock"

	daysPerYear = 365
)

// Optimizer sizes stocking parameters for one product/location pair
type Optimizer struct {
	policy domain.EnginePolicy
	clock  domain.Clock
}

// NewOptimizer creates an optimizer. A nil clock falls back to the system clock.
func NewOptimizer(policy domain.EnginePolicy, clock domain.Clock) *Optimizer {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Optimizer{policy: policy, clock: clock}
}

// Optimize computes EOQ, safety stock, reorder point, max stock and the
// implied annual cost from the demand history
func (o *Optimizer) Optimize(productID, locationID string, history []domain.DemandObservation, params domain.OptimizationParameters) (*domain.OptimizationResult, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no demand history for %s@%s: %w: %w",
			productID, locationID, domain.ErrNotFound, domain.ErrInsufficientData)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	quantities := stats.Quantities(history)

	// 1. Average daily and annual demand
	avgDailyDemand := stats.Mean(quantities)
	annualDemand := avgDailyDemand * daysPerYear

	// 2. Demand standard deviation
	demandStdDev := stats.StdDev(quantities)

	// 3. Economic order quantity
	eoq, err := EconomicOrderQuantity(annualDemand, params.OrderingCost, params.HoldingCostRate)
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", productID, locationID, err)
	}

	// 4-5. Safety stock at the target service level over the lead time
	leadTime := o.leadTime(params)
	z := stats.InverseNormalCDF(params.TargetServiceLevel)
	safetyStock := SafetyStock(z, demandStdDev, leadTime)

	// 6. Reorder point = demand over lead time + safety stock
	reorderPoint := avgDailyDemand*leadTime + safetyStock

	// 7. Max stock
	maxStock := reorderPoint + eoq

	// 8. Annual holding and ordering cost
	ordersPerYear := annualDemand / eoq
	holdingCost := domain.RoundCurrency((eoq/2 + safetyStock) * params.HoldingCostRate)
	orderingCost := domain.RoundCurrency(ordersPerYear * params.OrderingCost)
	totalCost := domain.RoundCurrency(holdingCost + orderingCost)

	serviceLevel := expectedServiceLevel(safetyStock, demandStdDev, leadTime)
	stockoutCost := domain.RoundCurrency((1 - serviceLevel) * ordersPerYear * params.StockoutCost)

	now := o.clock.Now()
	return &domain.OptimizationResult{
		ProductID:            productID,
		LocationID:           locationID,
		ReorderPoint:         reorderPoint,
		OrderQuantity:        eoq,
		SafetyStock:          safetyStock,
		MaxStock:             maxStock,
		AverageDailyDemand:   avgDailyDemand,
		DemandStdDev:         demandStdDev,
		LeadTimeDays:         leadTime,
		ExpectedServiceLevel: serviceLevel,
		TotalCost:            totalCost,
		HoldingCost:          holdingCost,
		OrderingCost:         orderingCost,
		StockoutCost:         stockoutCost,
		// 9. Fixed +/-10% band around the total cost
		ConfidenceInterval: domain.ConfidenceInterval{
			Lower: domain.RoundCurrency(totalCost * 0.9),
			Upper: domain.RoundCurrency(totalCost * 1.1),
		},
		Method:       MethodEOQSafetyStock,
		CalculatedAt: now,
		ValidUntil:   now.AddDate(0, 0, o.policy.ValidityDays),
	}, nil
}

func (o *Optimizer) leadTime(params domain.OptimizationParameters) float64 {
	if params.LeadTimeDays > 0 {
		return params.LeadTimeDays
	}
	return o.policy.DefaultLeadTimeDays
}

// EconomicOrderQuantity returns sqrt(2DS/H).
func EconomicOrderQuantity(annualDemand, orderingCost, holdingCostRate float64) (float64, error) {
	switch {
	case annualDemand <= 0:
		return 0, fmt.Errorf("%w: annual_demand=%g must be positive", domain.ErrInvalidParameters, annualDemand)
	case orderingCost <= 0:
		return 0, fmt.Errorf("%w: ordering_cost=%g must be positive", domain.ErrInvalidParameters, orderingCost)
	case holdingCostRate <= 0:
		return 0, fmt.Errorf("%w: holding_cost_rate=%g must be positive", domain.ErrInvalidParameters, holdingCostRate)
	}
	return math.Sqrt(2 * annualDemand * orderingCost / holdingCostRate), nil
}

// SafetyStock returns z * sigma * sqrt(leadTime), floored at zero.
func SafetyStock(z, demandStdDev, leadTimeDays float64) float64 {
	if leadTimeDays <= 0 {
		return 0
	}
	return math.Max(0, z*demandStdDev*math.Sqrt(leadTimeDays))
}

// expectedServiceLevel is the cycle service level the safety stock actually buys.
func expectedServiceLevel(safetyStock, demandStdDev, leadTimeDays float64) float64 {
	sigma := demandStdDev * math.Sqrt(leadTimeDays)
	if sigma == 0 {
		return 1
	}
	return stats.NormalCDF(safetyStock / sigma)
}
