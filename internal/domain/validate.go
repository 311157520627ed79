package domain

import (
	"fmt"
	"math"
)

const boundTolerance = 1e-9

// Validate checks the invariants every ForecastResult must hold before it leaves the forecaster.
func (f *ForecastResult) Validate(horizonDays int) error {
	if len(f.Predictions) != horizonDays {
		return &InvariantViolation{Subject: f.SKU, Detail: fmt.Sprintf("%d predictions for a %d day horizon", len(f.Predictions), horizonDays)}
	}
	if f.Confidence < 0 || f.Confidence > 1 || math.IsNaN(f.Confidence) {
		return &InvariantViolation{Subject: f.SKU, Detail: fmt.Sprintf("confidence %v outside [0,1]", f.Confidence)}
	}
	for i, p := range f.Predictions {
		if i > 0 && DaysBetween(f.Predictions[i-1].Date, p.Date) != 1 {
			return &InvariantViolation{Subject: f.SKU, Detail: fmt.Sprintf("prediction %d is not the day after %s", i, DateKey(f.Predictions[i-1].Date))}
		}
		if err := p.validate(); err != nil {
			return &InvariantViolation{Subject: f.SKU, Detail: fmt.Sprintf("%s: %v", DateKey(p.Date), err)}
		}
	}
	return nil
}

func (p DailyPrediction) validate() error {
	for _, v := range []float64{p.DemandForecast, p.LowerBound, p.UpperBound, p.FestivalMultiplier} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value")
		}
	}
	if p.LowerBound < 0 || p.DemandForecast < 0 || p.UpperBound < 0 {
		return fmt.Errorf("negative demand")
	}
	if p.LowerBound > p.DemandForecast+boundTolerance || p.DemandForecast > p.UpperBound+boundTolerance {
		return fmt.Errorf("bounds %v <= %v <= %v do not hold", p.LowerBound, p.DemandForecast, p.UpperBound)
	}
	if p.FestivalMultiplier < 1 {
		return fmt.Errorf("festival multiplier %v below 1", p.FestivalMultiplier)
	}
	return nil
}

// Validate checks the probability and quantity ranges of an assessment.
func (r *RiskAssessment) Validate() error {
	checks := []struct {
		name string
		v    float64
		max  float64
	}{
		{"stockout probability", r.StockoutRisk.Probability, 1},
		{"overstock probability", r.OverstockRisk.Probability, 1},
		{"recommendation confidence", r.Recommendation.Confidence, 1},
		{"potential lost sales", r.StockoutRisk.PotentialLostSales, math.Inf(1)},
		{"excess units", r.OverstockRisk.ExcessUnits, math.Inf(1)},
		{"carrying cost", r.OverstockRisk.CarryingCost, math.Inf(1)},
		{"suggested quantity", r.Recommendation.SuggestedQuantity, math.Inf(1)},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < 0 || c.v > c.max {
			return &InvariantViolation{Subject: r.SKU, Detail: fmt.Sprintf("%s %v out of range", c.name, c.v)}
		}
	}
	if r.StockoutRisk.DaysUntilStockout < 0 {
		return &InvariantViolation{Subject: r.SKU, Detail: "negative days until stockout"}
	}
	return nil
}
