// Package risk derives stockout and overstock risk from a forecast and an inventory level.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Config holds the risk policy
type Config struct {
	Thresholds          Thresholds
	ExcessThreshold     float64 // fraction of demand stock may exceed before it counts as overstock
	ShelfLifeBufferDays int     // days of mean demand added to the horizon when projecting overstock
	HoldingCostPerUnit  float64 // per unit per day
	MaxHoldingDays      int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Thresholds:          DefaultThresholds(),
		ExcessThreshold:     0.2,
		ShelfLifeBufferDays: 7,
		HoldingCostPerUnit:  0.05,
		MaxHoldingDays:      90,
	}
}

// Assessor computes RiskAssessments. It is stateless.
type Assessor struct {
	cfg Config
	now func() time.Time
}

// NewAssessor creates an Assessor
func NewAssessor(cfg Config) *Assessor {
	return &Assessor{cfg: cfg, now: time.Now}
}

// Thresholds returns the severity policy in use
func (a *Assessor) Thresholds() Thresholds { return a.cfg.Thresholds }

// Assess computes the risk for one forecast and one stock level. The recommendation is left
// empty for the recommendation engine to fill in.
func (a *Assessor) Assess(forecast *domain.ForecastResult, currentStock float64, leadTimeDays, safetyStockDays int) (*domain.RiskAssessment, error) {
	if forecast == nil || len(forecast.Predictions) == 0 {
		return nil, &domain.ValidationError{Field: "forecast", Reason: "has no predictions"}
	}
	if currentStock < 0 || math.IsNaN(currentStock) || math.IsInf(currentStock, 0) {
		return nil, &domain.ValidationError{Field: "currentStock", Reason: "must be a non-negative number"}
	}
	if leadTimeDays < 1 {
		return nil, &domain.ValidationError{Field: "leadTimeDays", Reason: "must be at least 1"}
	}
	if safetyStockDays < 0 {
		return nil, &domain.ValidationError{Field: "safetyStockDays", Reason: "must not be negative"}
	}

	preds := forecast.Predictions
	horizon := len(preds)
	leadWindow := leadTimeDays
	if leadWindow > horizon {
		leadWindow = horizon
	}

	ra := &domain.RiskAssessment{
		SKU:                 forecast.SKU,
		Category:            forecast.Category,
		CurrentStock:        currentStock,
		LeadTimeDays:        leadTimeDays,
		SafetyStockDays:     safetyStockDays,
		HorizonDays:         horizon,
		ForecastConfidence:  forecast.Confidence,
		ForecastMethodology: forecast.Methodology,
		AssessedAt:          a.now().UTC(),
	}

	// 1. Stockout probability from the upper band over the lead-time window
	var cumUpper float64
	for _, p := range preds[:leadWindow] {
		cumUpper += p.UpperBound
	}
	if cumUpper > 0 {
		ra.StockoutRisk.Probability = domain.Clamp01((cumUpper - currentStock) / cumUpper)
	}

	// 2. Days until stockout: first day cumulative demand covers current stock.
	// No demand never stocks out, even on an empty shelf.
	ra.StockoutRisk.DaysUntilStockout = horizon
	var cum float64
	for d, p := range preds {
		cum += p.DemandForecast
		if cum > 0 && cum >= currentStock {
			ra.StockoutRisk.DaysUntilStockout = d
			ra.StockoutRisk.StockoutWithinHorizon = true
			break
		}
	}

	// 3. Potential lost sales once stock runs out
	remaining := currentStock
	var lost float64
	for _, p := range preds {
		if remaining >= p.DemandForecast {
			remaining -= p.DemandForecast
			continue
		}
		lost += p.DemandForecast - remaining
		remaining = 0
	}
	ra.StockoutRisk.PotentialLostSales = roundFloat(lost, 2)

	// 4. Demand projections
	ra.HorizonDemand = forecast.TotalDemand(0)
	mean := forecast.MeanDailyDemand()
	ra.LeadTimeDemand = forecast.TotalDemand(leadWindow)
	ra.LeadTimeSafetyDemand = demandOver(forecast, leadTimeDays+safetyStockDays, mean)

	// 5. Overstock against horizon demand plus the shelf-life buffer
	projected := ra.HorizonDemand + float64(a.cfg.ShelfLifeBufferDays)*mean
	ra.OverstockRisk.ExcessUnits = roundFloat(math.Max(0, currentStock-projected), 2)
	if currentStock > 0 {
		ra.OverstockRisk.Probability = domain.Clamp01((currentStock - projected*(1+a.cfg.ExcessThreshold)) / currentStock)
	}
	ra.OverstockRisk.Overstocked = currentStock > ra.HorizonDemand*(1+a.cfg.ExcessThreshold)

	// 6. Carrying cost of the excess
	ra.OverstockRisk.CarryingCost = a.carryingCost(ra.OverstockRisk.ExcessUnits, mean)

	// 7. Severity and alerts
	ra.StockoutRisk.Severity = a.cfg.Thresholds.Severity(ra.StockoutRisk.Probability)
	ra.OverstockRisk.Severity = a.cfg.Thresholds.Severity(ra.OverstockRisk.Probability)
	ra.Alerts = a.alerts(ra)

	if err := ra.Validate(); err != nil {
		return nil, err
	}
	return ra, nil
}

// demandOver sums forecast demand over days, extending past the horizon at the mean daily rate.
func demandOver(f *domain.ForecastResult, days int, mean float64) float64 {
	total := f.TotalDemand(days)
	if extra := days - len(f.Predictions); extra > 0 {
		total += float64(extra) * mean
	}
	return total
}

func (a *Assessor) carryingCost(excess, meanDaily float64) float64 {
	if excess <= 0 || a.cfg.HoldingCostPerUnit <= 0 {
		return 0
	}
	daysHeld := float64(a.cfg.MaxHoldingDays)
	if meanDaily > 0 {
		daysHeld = math.Min(math.Ceil(excess/meanDaily), daysHeld)
	}
	cost := decimal.NewFromFloat(a.cfg.HoldingCostPerUnit).
		Mul(decimal.NewFromFloat(excess)).
		Mul(decimal.NewFromFloat(daysHeld)).
		Round(2)
	return cost.InexactFloat64()
}

func (a *Assessor) alerts(ra *domain.RiskAssessment) []domain.Alert {
	alerts := make([]domain.Alert, 0, 2)
	so := ra.StockoutRisk
	if a.cfg.Thresholds.ShouldAlert(so.Probability) {
		msg := fmt.Sprintf("stockout risk %.0f%%: %.1f units forecast over %d day lead time against %.1f in stock",
			so.Probability*100, ra.LeadTimeDemand, ra.LeadTimeDays, ra.CurrentStock)
		if so.StockoutWithinHorizon {
			msg += fmt.Sprintf(", stock runs out on day %d", so.DaysUntilStockout)
		}
		alerts = append(alerts, domain.Alert{Type: domain.AlertStockout, Severity: so.Severity, Probability: so.Probability, Message: msg})
	}
	ov := ra.OverstockRisk
	if a.cfg.Thresholds.ShouldAlert(ov.Probability) {
		alerts = append(alerts, domain.Alert{
			Type:        domain.AlertOverstock,
			Severity:    ov.Severity,
			Probability: ov.Probability,
			Message: fmt.Sprintf("overstock risk %.0f%%: %.1f excess units, carrying cost %.2f",
				ov.Probability*100, ov.ExcessUnits, ov.CarryingCost),
		})
	}
	return alerts
}
