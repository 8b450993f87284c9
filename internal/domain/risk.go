package domain

import "strings"

// RiskLevel classifies how soon a product is expected to stock out
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

var riskLevelLabels = map[RiskLevel]string{
	RiskCritical: "Critical",
	RiskHigh:     "High",
	RiskMedium:   "Medium",
	RiskLow:      "Low",
}

var riskLevelRanks = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

var riskActions = map[RiskLevel][]string{
	RiskCritical: {
		"Place an emergency purchase order immediately",
		"Request an expedited transfer from a surplus location",
		"Notify sales of potential backorders",
	},
	RiskHigh: {
		"Place a replenishment order within the current cycle",
		"Review supplier lead time commitments",
	},
	RiskMedium: {
		"Schedule replenishment in the next ordering cycle",
		"Monitor daily demand against forecast",
	},
	RiskLow: {
		"No action required; continue regular monitoring",
	},
}

// Label returns a human-readable label for the risk level.
func (r RiskLevel) Label() string {
	if label, ok := riskLevelLabels[r]; ok {
		return label
	}

	return "Unknown"
}

// Rank orders risk levels from low (0) to critical (3); unknown levels rank -1.
func (r RiskLevel) Rank() int {
	if rank, ok := riskLevelRanks[r]; ok {
		return rank
	}

	return -1
}

// RecommendedActions returns a copy of the static action list for the level.
func (r RiskLevel) RecommendedActions() []string {
	return append([]string(nil), riskActions[r]...)
}

// ParseRiskLevel returns the level for a given label (case-insensitive).
func ParseRiskLevel(label string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(label)))
	_, ok := riskLevelLabels[level]

	return level, ok
}

// ClassifyDaysUntilStockout maps days of remaining cover to a risk level.
// A nil value means no stockout within the forecast horizon.
func ClassifyDaysUntilStockout(days *int) RiskLevel {
	switch {
	case days == nil:
		return RiskLow
	case *days <= 7:
		return RiskCritical
	case *days <= 30:
		return RiskHigh
	case *days <= 60:
		return RiskMedium
	default:
		return RiskLow
	}
}
