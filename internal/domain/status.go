package domain

import "strings"

// Methodology names the forecasting path used for a result
type Methodology string

const (
	MethodologyML      Methodology = "ml"
	MethodologyPattern Methodology = "pattern"
	MethodologyHybrid  Methodology = "hybrid"
)

// Quality is the coarse data quality grade
type Quality string

const (
	QualityPoor Quality = "poor"
	QualityFair Quality = "fair"
	QualityGood Quality = "good"
)

// ConfidenceTag is the user's own confidence in an estimate
type ConfidenceTag string

const (
	ConfidenceLow    ConfidenceTag = "low"
	ConfidenceMedium ConfidenceTag = "medium"
	ConfidenceHigh   ConfidenceTag = "high"
)

// Level is used for both risk severity and urgency
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Action is the reorder decision
type Action string

const (
	ActionReorder  Action = "reorder"
	ActionReduce   Action = "reduce"
	ActionMaintain Action = "maintain"
)

// AlertType distinguishes stockout from overstock alerts
type AlertType string

const (
	AlertStockout  AlertType = "stockout"
	AlertOverstock AlertType = "overstock"
)

// RiskTolerance scales safety stock for a business
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

var levelRank = map[Level]int{
	LevelLow:    0,
	LevelMedium: 1,
	LevelHigh:   2,
}

// AtLeast reports whether l is as severe as other.
func (l Level) AtLeast(other Level) bool {
	return levelRank[l] >= levelRank[other]
}

var confidenceTags = map[string]ConfidenceTag{
	"low":    ConfidenceLow,
	"medium": ConfidenceMedium,
	"high":   ConfidenceHigh,
}

// ParseConfidenceTag returns the tag for a label (case-insensitive).
func ParseConfidenceTag(label string) (ConfidenceTag, bool) {
	tag, ok := confidenceTags[strings.ToLower(strings.TrimSpace(label))]
	return tag, ok
}

var riskTolerances = map[string]RiskTolerance{
	"conservative": RiskConservative,
	"moderate":     RiskModerate,
	"aggressive":   RiskAggressive,
}

// ParseRiskTolerance returns the tolerance for a label (case-insensitive).
// An empty label means moderate.
func ParseRiskTolerance(label string) (RiskTolerance, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return RiskModerate, true
	}
	t, ok := riskTolerances[label]
	return t, ok
}

// SafetyStockFactor scales the configured safety stock days.
func (t RiskTolerance) SafetyStockFactor() float64 {
	switch t {
	case RiskConservative:
		return 1.5
	case RiskAggressive:
		return 0.5
	default:
		return 1.0
	}
}
