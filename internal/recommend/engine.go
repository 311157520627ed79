// Package recommend turns a risk assessment into a reorder decision with auditable reasoning.
package recommend

import (
	"fmt"
	"math"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Config holds the ordering policy
type Config struct {
	PackSize float64 // order quantities are multiples of this; <= 1 means single units
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{PackSize: 1}
}

// Engine produces recommendations. It is stateless.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine
func NewEngine(cfg Config) *Engine {
	if cfg.PackSize <= 0 {
		cfg.PackSize = 1
	}
	return &Engine{cfg: cfg}
}

// Recommend decides the action for an assessment. Confidence is taken from the forecast.
func (e *Engine) Recommend(ra *domain.RiskAssessment) domain.ReorderRecommendation {
	so, ov := ra.StockoutRisk, ra.OverstockRisk
	rec := domain.ReorderRecommendation{
		Action:     domain.ActionMaintain,
		Urgency:    urgency(so, ra.LeadTimeDays),
		Confidence: domain.Clamp01(ra.ForecastConfidence),
	}

	switch {
	case so.Severity.AtLeast(domain.LevelMedium) && !ov.Overstocked:
		rec.Action = domain.ActionReorder
		rec.SuggestedQuantity = e.roundUp(math.Max(0, ra.LeadTimeSafetyDemand-ra.CurrentStock))
	case ov.Severity.AtLeast(domain.LevelMedium) && so.Severity == domain.LevelLow:
		rec.Action = domain.ActionReduce
		rec.SuggestedQuantity = e.roundDown(ov.ExcessUnits)
	}

	rec.Reasoning = e.reasoning(ra, rec)
	return rec
}

func urgency(so domain.StockoutRisk, leadTimeDays int) domain.Level {
	if !so.StockoutWithinHorizon {
		return domain.LevelLow
	}
	d := so.DaysUntilStockout
	switch {
	case d*2 <= leadTimeDays:
		return domain.LevelHigh
	case d <= leadTimeDays:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

func (e *Engine) roundUp(qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	return math.Ceil(qty/e.cfg.PackSize-1e-9) * e.cfg.PackSize
}

func (e *Engine) roundDown(qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	return math.Floor(qty/e.cfg.PackSize+1e-9) * e.cfg.PackSize
}

func (e *Engine) reasoning(ra *domain.RiskAssessment, rec domain.ReorderRecommendation) []string {
	so, ov := ra.StockoutRisk, ra.OverstockRisk
	out := []string{
		fmt.Sprintf("forecast demand over %d day lead time: %.1f units (%d day horizon: %.1f units)",
			ra.LeadTimeDays, ra.LeadTimeDemand, ra.HorizonDays, ra.HorizonDemand),
		fmt.Sprintf("current stock: %.1f units", ra.CurrentStock),
		fmt.Sprintf("lead time: %d days, safety stock: %d days", ra.LeadTimeDays, ra.SafetyStockDays),
	}

	if so.StockoutWithinHorizon {
		out = append(out, fmt.Sprintf("stockout probability %.0f%% (%s), stock runs out on day %d",
			so.Probability*100, so.Severity, so.DaysUntilStockout))
	} else {
		out = append(out, fmt.Sprintf("stockout probability %.0f%% (%s), stock outlasts the %d day horizon",
			so.Probability*100, so.Severity, ra.HorizonDays))
	}
	out = append(out, fmt.Sprintf("overstock probability %.0f%% (%s), excess %.1f units",
		ov.Probability*100, ov.Severity, ov.ExcessUnits))

	switch rec.Action {
	case domain.ActionReorder:
		out = append(out, fmt.Sprintf("reorder %.0f units to cover %.1f units of lead time plus safety stock demand (pack size %.0f)",
			rec.SuggestedQuantity, ra.LeadTimeSafetyDemand, e.cfg.PackSize))
	case domain.ActionReduce:
		out = append(out, fmt.Sprintf("reduce stock by %.0f units of excess", rec.SuggestedQuantity))
	default:
		if so.Severity.AtLeast(domain.LevelMedium) && ov.Overstocked {
			out = append(out, "reorder withheld: stock already exceeds horizon demand by more than the excess threshold")
		} else {
			out = append(out, "maintain: no risk at medium severity or above")
		}
	}

	out = append(out, fmt.Sprintf("forecast methodology %s, confidence %.2f", ra.ForecastMethodology, ra.ForecastConfidence))
	return out
}
