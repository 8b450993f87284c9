package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizationParametersValidate(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)

	cases := []struct {
		name   string
		mutate func(p *OptimizationParameters)
		field  string
	}{
		{"service level NaN", func(p *OptimizationParameters) { p.TargetServiceLevel = nan }, "target_service_level"},
		{"service level one", func(p *OptimizationParameters) { p.TargetServiceLevel = 1 }, "target_service_level"},
		{"holding rate NaN", func(p *OptimizationParameters) { p.HoldingCostRate = nan }, "holding_cost_rate"},
		{"holding rate zero", func(p *OptimizationParameters) { p.HoldingCostRate = 0 }, "holding_cost_rate"},
		{"ordering cost +Inf", func(p *OptimizationParameters) { p.OrderingCost = inf }, "ordering_cost"},
		{"stockout cost -Inf", func(p *OptimizationParameters) { p.StockoutCost = math.Inf(-1) }, "stockout_cost"},
		{"lead time +Inf", func(p *OptimizationParameters) { p.LeadTimeDays = inf }, "lead_time_days"},
		{"lead time negative", func(p *OptimizationParameters) { p.LeadTimeDays = -1 }, "lead_time_days"},
		{"lead time variability NaN", func(p *OptimizationParameters) { p.LeadTimeVariability = nan }, "lead_time_variability"},
		{"demand variability +Inf", func(p *OptimizationParameters) { p.DemandVariability = inf }, "demand_variability"},
		{"trend NaN", func(p *OptimizationParameters) { p.TrendFactor = nan }, "trend_factor"},
		{"seasonality NaN", func(p *OptimizationParameters) { p.SeasonalityFactors[3] = nan }, "seasonality_factors[3]"},
		{"max investment +Inf", func(p *OptimizationParameters) { p.MaxInvestment = &inf }, "max_investment"},
		{"storage NaN", func(p *OptimizationParameters) { p.StorageConstraints = map[string]float64{"WH-1": nan} }, "storage_constraints[WH-1]"},
		{"storage negative", func(p *OptimizationParameters) { p.StorageConstraints = map[string]float64{"WH-1": -5} }, "storage_constraints[WH-1]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultOptimizationParameters()
			tc.mutate(&p)
			err := p.Validate()
			assert.ErrorIs(t, err, ErrInvalidParameters)
			assert.ErrorContains(t, err, tc.field)
		})
	}

	assert.NoError(t, DefaultOptimizationParameters().Validate())
}

func TestEnginePolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultEnginePolicy().Validate())

	for name, mutate := range map[string]func(p *EnginePolicy){
		"alpha NaN":      func(p *EnginePolicy) { p.SmoothingAlpha = math.NaN() },
		"alpha zero":     func(p *EnginePolicy) { p.SmoothingAlpha = 0 },
		"lead time +Inf": func(p *EnginePolicy) { p.DefaultLeadTimeDays = math.Inf(1) },
		"lead time NaN":  func(p *EnginePolicy) { p.DefaultLeadTimeDays = math.NaN() },
	} {
		t.Run(name, func(t *testing.T) {
			p := DefaultEnginePolicy()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParameters)
		})
	}
}

func TestRebalancingPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultRebalancingPolicy().Validate())

	for name, mutate := range map[string]func(p *RebalancingPolicy){
		"surplus +Inf":    func(p *RebalancingPolicy) { p.SurplusThreshold = math.Inf(1) },
		"deficit NaN":     func(p *RebalancingPolicy) { p.DeficitThreshold = math.NaN() },
		"fraction NaN":    func(p *RebalancingPolicy) { p.TransferFraction = math.NaN() },
		"max +Inf":        func(p *RebalancingPolicy) { p.MaxTransferQuantity = math.Inf(1) },
		"min NaN":         func(p *RebalancingPolicy) { p.MinTransferQuantity = math.NaN() },
		"cost NaN":        func(p *RebalancingPolicy) { p.TransferCostPerUnit = math.NaN() },
		"benefit +Inf":    func(p *RebalancingPolicy) { p.BenefitPerUnit = math.Inf(1) },
		"savings -Inf":    func(p *RebalancingPolicy) { p.SavingsPerUnit = math.Inf(-1) },
		"fraction over 1": func(p *RebalancingPolicy) { p.TransferFraction = 1.5 },
	} {
		t.Run(name, func(t *testing.T) {
			p := DefaultRebalancingPolicy()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParameters)
		})
	}
}

func TestRiskLevelHelpers(t *testing.T) {
	assert.Greater(t, RiskCritical.Rank(), RiskHigh.Rank())
	assert.Greater(t, RiskHigh.Rank(), RiskMedium.Rank())
	assert.Greater(t, RiskMedium.Rank(), RiskLow.Rank())
	assert.Equal(t, -1, RiskLevel("severe").Rank())

	level, ok := ParseRiskLevel(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, RiskHigh, level)
	_, ok = ParseRiskLevel("severe")
	assert.False(t, ok)

	assert.Equal(t, "Unknown", RiskLevel("severe").Label())
	assert.NotEqual(t, "Unknown", RiskCritical.Label())
}
