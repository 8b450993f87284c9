package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Clock abstracts wall-clock time so forecasts can be replayed
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the real wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// EnginePolicy holds the tunable constants of the forecast and optimizer
type EnginePolicy struct {
	SmoothingAlpha        float64 // exponential smoothing constant
	DefaultLeadTimeDays   float64 // used when parameters carry no lead time
	ProbabilisticStockout bool    // normal approximation instead of 0/1 checkpoints
	ValidityDays          int     // how long an OptimizationResult stays valid
}

// DefaultEnginePolicy returns the default constants.
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		SmoothingAlpha:      0.3,
		DefaultLeadTimeDays: 7,
		ValidityDays:        7,
	}
}

func (p EnginePolicy) Validate() error {
	if err := requireFinite(
		field{"smoothing_alpha", p.SmoothingAlpha},
		field{"default_lead_time_days", p.DefaultLeadTimeDays},
	); err != nil {
		return err
	}
	if p.SmoothingAlpha <= 0 || p.SmoothingAlpha > 1 {
		return invalidParam("smoothing_alpha", p.SmoothingAlpha, "must be in (0,1]")
	}
	if p.DefaultLeadTimeDays <= 0 {
		return invalidParam("default_lead_time_days", p.DefaultLeadTimeDays, "must be positive")
	}
	if p.ValidityDays < 0 {
		return invalidParam("validity_days", float64(p.ValidityDays), "must not be negative")
	}
	return nil
}

// RebalancingPolicy holds the thresholds and per-unit economics of network transfers
type RebalancingPolicy struct {
	SurplusThreshold    float64 // source must hold more than this
	DeficitThreshold    float64 // destination must hold less than this
	TransferFraction    float64 // share of source stock proposed for transfer
	MaxTransferQuantity float64
	MinTransferQuantity float64 // transfers must strictly exceed this
	TransferCostPerUnit float64
	BenefitPerUnit      float64
	SavingsPerUnit      float64
}

// DefaultRebalancingPolicy returns the default constants.
func DefaultRebalancingPolicy() RebalancingPolicy {
	return RebalancingPolicy{
		SurplusThreshold:    100,
		DeficitThreshold:    50,
		TransferFraction:    0.3,
		MaxTransferQuantity: 100,
		MinTransferQuantity: 10,
		TransferCostPerUnit: 0.5,
		BenefitPerUnit:      2.0,
		SavingsPerUnit:      1.5,
	}
}

func (p RebalancingPolicy) Validate() error {
	if err := requireFinite(
		field{"surplus_threshold", p.SurplusThreshold},
		field{"deficit_threshold", p.DeficitThreshold},
		field{"transfer_fraction", p.TransferFraction},
		field{"max_transfer_quantity", p.MaxTransferQuantity},
		field{"min_transfer_quantity", p.MinTransferQuantity},
		field{"transfer_cost_per_unit", p.TransferCostPerUnit},
		field{"benefit_per_unit", p.BenefitPerUnit},
		field{"savings_per_unit", p.SavingsPerUnit},
	); err != nil {
		return err
	}
	if p.TransferFraction <= 0 || p.TransferFraction > 1 {
		return invalidParam("transfer_fraction", p.TransferFraction, "must be in (0,1]")
	}
	if p.DeficitThreshold < 0 || p.SurplusThreshold < p.DeficitThreshold {
		return fmt.Errorf("%w: surplus threshold %g must be >= deficit threshold %g",
			ErrInvalidParameters, p.SurplusThreshold, p.DeficitThreshold)
	}
	if p.MaxTransferQuantity <= 0 || p.MinTransferQuantity < 0 {
		return fmt.Errorf("%w: transfer quantity bounds [%g, %g]",
			ErrInvalidParameters, p.MinTransferQuantity, p.MaxTransferQuantity)
	}
	if p.TransferCostPerUnit < 0 || p.BenefitPerUnit < 0 || p.SavingsPerUnit < 0 {
		return fmt.Errorf("%w: per-unit economics must not be negative", ErrInvalidParameters)
	}
	return nil
}

// RoundCurrency rounds a monetary amount to cents.
func RoundCurrency(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
