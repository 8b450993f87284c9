package domain

import (
	"fmt"
	"math"
	"time"
)

// DemandObservation is a single (date, quantity) row of outbound movement history
type DemandObservation struct {
	Date     time.Time `json:"date" db:"movement_date"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// ConfidenceInterval is a lower/upper band around a point estimate
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// StockLevel is the on-hand quantity of a product at a location
type StockLevel struct {
	ProductID  string  `json:"product_id" db:"product_id"`
	LocationID string  `json:"location_id" db:"location_id"`
	Quantity   float64 `json:"quantity" db:"quantity"`
}

// OptimizationParameters is supplied by the caller and never mutated by the engine
type OptimizationParameters struct {
	TargetServiceLevel  float64            `json:"target_service_level"`
	HoldingCostRate     float64            `json:"holding_cost_rate"`
	OrderingCost        float64            `json:"ordering_cost"`
	StockoutCost        float64            `json:"stockout_cost"`
	LeadTimeDays        float64            `json:"lead_time_days,omitempty"` // 0 uses the engine default
	LeadTimeVariability float64            `json:"lead_time_variability"`
	DemandVariability   float64            `json:"demand_variability"`
	SeasonalityFactors  [12]float64        `json:"seasonality_factors"`
	TrendFactor         float64            `json:"trend_factor"`
	MaxInvestment       *float64           `json:"max_investment,omitempty"`
	StorageConstraints  map[string]float64 `json:"storage_constraints,omitempty"`
}

// DefaultOptimizationParameters returns a 95% service level parameter set
func DefaultOptimizationParameters() OptimizationParameters {
	p := OptimizationParameters{
		TargetServiceLevel: 0.95,
		HoldingCostRate:    0.25,
		OrderingCost:       50,
		StockoutCost:       10,
	}
	for i := range p.SeasonalityFactors {
		p.SeasonalityFactors[i] = 1.0
	}
	return p
}

// Validate checks every field against its domain
func (p OptimizationParameters) Validate() error {
	if err := requireFinite(
		field{"target_service_level", p.TargetServiceLevel},
		field{"holding_cost_rate", p.HoldingCostRate},
		field{"ordering_cost", p.OrderingCost},
		field{"stockout_cost", p.StockoutCost},
		field{"lead_time_days", p.LeadTimeDays},
		field{"lead_time_variability", p.LeadTimeVariability},
		field{"demand_variability", p.DemandVariability},
		field{"trend_factor", p.TrendFactor},
	); err != nil {
		return err
	}
	for i, f := range p.SeasonalityFactors {
		if !isFinite(f) {
			return invalidParam(fmt.Sprintf("seasonality_factors[%d]", i), f, "must be finite")
		}
	}
	if p.MaxInvestment != nil && !isFinite(*p.MaxInvestment) {
		return invalidParam("max_investment", *p.MaxInvestment, "must be finite")
	}
	for loc, capacity := range p.StorageConstraints {
		if !isFinite(capacity) {
			return invalidParam("storage_constraints["+loc+"]", capacity, "must be finite")
		}
	}

	if p.TargetServiceLevel <= 0 || p.TargetServiceLevel >= 1 {
		return invalidParam("target_service_level", p.TargetServiceLevel, "must be in (0,1)")
	}
	if p.HoldingCostRate <= 0 {
		return invalidParam("holding_cost_rate", p.HoldingCostRate, "must be positive")
	}
	if p.OrderingCost <= 0 {
		return invalidParam("ordering_cost", p.OrderingCost, "must be positive")
	}
	if p.StockoutCost < 0 {
		return invalidParam("stockout_cost", p.StockoutCost, "must not be negative")
	}
	if p.LeadTimeDays < 0 {
		return invalidParam("lead_time_days", p.LeadTimeDays, "must not be negative")
	}
	if p.LeadTimeVariability < 0 {
		return invalidParam("lead_time_variability", p.LeadTimeVariability, "must not be negative")
	}
	if p.DemandVariability < 0 {
		return invalidParam("demand_variability", p.DemandVariability, "must not be negative")
	}
	if p.MaxInvestment != nil && *p.MaxInvestment < 0 {
		return invalidParam("max_investment", *p.MaxInvestment, "must not be negative")
	}
	for loc, capacity := range p.StorageConstraints {
		if capacity < 0 {
			return invalidParam("storage_constraints["+loc+"]", capacity, "must not be negative")
		}
	}
	return nil
}

func invalidParam(name string, value float64, reason string) error {
	return fmt.Errorf("%w: %s=%g %s", ErrInvalidParameters, name, value, reason)
}

type field struct {
	name  string
	value float64
}

// requireFinite rejects NaN and ±Inf, which slip past ordered comparisons.
func requireFinite(fields ...field) error {
	for _, f := range fields {
		if !isFinite(f.value) {
			return invalidParam(f.name, f.value, "must be finite")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OptimizationResult is produced once per (product, location, parameter set, run)
type OptimizationResult struct {
	ProductID            string             `json:"product_id"`
	LocationID           string             `json:"location_id"`
	ReorderPoint         float64            `json:"reorder_point"`
	OrderQuantity        float64            `json:"order_quantity"`
	SafetyStock          float64            `json:"safety_stock"`
	MaxStock             float64            `json:"max_stock"`
	AverageDailyDemand   float64            `json:"average_daily_demand"`
	DemandStdDev         float64            `json:"demand_std_dev"`
	LeadTimeDays         float64            `json:"lead_time_days"`
	ExpectedServiceLevel float64            `json:"expected_service_level"`
	TotalCost            float64            `json:"total_cost"`
	HoldingCost          float64            `json:"holding_cost"`
	OrderingCost         float64            `json:"ordering_cost"`
	StockoutCost         float64            `json:"stockout_cost"`
	ConfidenceInterval   ConfidenceInterval `json:"confidence_interval"`
	Method               string             `json:"method"`
	CalculatedAt         time.Time          `json:"calculated_at"`
	ValidUntil           time.Time          `json:"valid_until"`
}

// DemandForecast holds a day-by-day forecast; DailyDemand and ConfidenceIntervals
// always have exactly HorizonDays entries.
type DemandForecast struct {
	ProductID           string               `json:"product_id"`
	LocationID          string               `json:"location_id"`
	ForecastDate        time.Time            `json:"forecast_date"`
	HorizonDays         int                  `json:"horizon_days"`
	DailyDemand         []float64            `json:"daily_demand_forecast"`
	DemandVariance      float64              `json:"demand_variance"`
	Baseline            float64              `json:"baseline"`
	SeasonalComponent   [12]float64          `json:"seasonal_component"`
	TrendComponent      float64              `json:"trend_component"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals"`
	AccuracyEstimate    float64              `json:"accuracy_estimate"`
	Method              string               `json:"method"`
}

// StockoutRiskAnalysis is the outcome of walking a forecast against current stock
type StockoutRiskAnalysis struct {
	ProductID             string    `json:"product_id"`
	LocationID            string    `json:"location_id"`
	CurrentStock          float64   `json:"current_stock"`
	StockoutProbability30 float64   `json:"stockout_probability_30d"`
	StockoutProbability60 float64   `json:"stockout_probability_60d"`
	StockoutProbability90 float64   `json:"stockout_probability_90d"`
	DaysUntilStockout     *int      `json:"days_until_stockout,omitempty"`
	RiskLevel             RiskLevel `json:"risk_level"`
	RecommendedActions    []string  `json:"recommended_actions"`
	ContributingFactors   []string  `json:"contributing_factors"`
	AnalyzedAt            time.Time `json:"analyzed_at"`
}

// RecommendedStockTransfer is a proposed movement between two locations
type RecommendedStockTransfer struct {
	FromLocationID  string    `json:"from_location_id"`
	ToLocationID    string    `json:"to_location_id"`
	ProductID       string    `json:"product_id"`
	Quantity        float64   `json:"quantity"`
	TransferCost    float64   `json:"transfer_cost"`
	ExpectedBenefit float64   `json:"expected_benefit"`
	Urgency         RiskLevel `json:"urgency"`
	Reason          string    `json:"reason"`
}

// BatchOptimizationResult reports every product at a location that could be optimized
type BatchOptimizationResult struct {
	RunID               string                `json:"run_id"`
	LocationID          string                `json:"location_id"`
	Results             []*OptimizationResult `json:"results"`
	SkippedProducts     []string              `json:"skipped_products"`
	TotalCost           float64               `json:"total_cost"`
	TotalMaxStock       float64               `json:"total_max_stock"`
	ConstraintsViolated []string              `json:"constraints_violated"`
	Recommendations     []string              `json:"recommendations"`
	GeneratedAt         time.Time             `json:"generated_at"`
}

// SupplyChainOptimization is the network-wide rebalancing proposal
type SupplyChainOptimization struct {
	ID                   string                              `json:"id"`
	LocationIDs          []string                            `json:"location_ids"`
	RecommendedTransfers []RecommendedStockTransfer          `json:"recommended_transfers"`
	TotalTransferCost    float64                             `json:"total_transfer_cost"`
	TotalExpectedBenefit float64                             `json:"total_expected_benefit"`
	CostSavingsPotential float64                             `json:"cost_savings_potential"`
	LocationResults      map[string]*BatchOptimizationResult `json:"location_results,omitempty"`
	GeneratedAt          time.Time                           `json:"generated_at"`
}
