// backend-go/internal/domain/models.go
package domain

import "time"

// SalesObservation is one day of sales for one SKU
type SalesObservation struct {
	Date         time.Time `json:"date" db:"sale_date"`
	SKU          string    `json:"sku" db:"sku"`
	Category     string    `json:"category" db:"category"`
	QuantitySold float64   `json:"quantitySold" db:"quantity_sold"`
}

// InventoryEstimate is a user supplied estimate used in low-data mode
type InventoryEstimate struct {
	Category          string        `json:"category"`
	CurrentStock      float64       `json:"currentStock"`
	AverageDailySales float64       `json:"averageDailySales"`
	ConfidenceTag     ConfidenceTag `json:"confidence"`
}

// FestivalEvent is calendar reference data
type FestivalEvent struct {
	FestivalID        string             `json:"festivalId" yaml:"festivalId"`
	Name              string             `json:"name" yaml:"name"`
	StartDate         time.Time          `json:"startDate" yaml:"startDate"`
	Regions           []string           `json:"regions" yaml:"regions"`
	DemandMultipliers map[string]float64 `json:"demandMultipliers" yaml:"demandMultipliers"`
	DurationDays      int                `json:"durationDays" yaml:"durationDays"`
	PreparationDays   int                `json:"preparationDays" yaml:"preparationDays"`
}

// ResolvedDayMultiplier is the merged uplift for one day and category
type ResolvedDayMultiplier struct {
	Date       time.Time `json:"date"`
	Category   string    `json:"category"`
	Multiplier float64   `json:"multiplier"`
}

// DailyPrediction holds the demand forecast for a single day
type DailyPrediction struct {
	Date               time.Time `json:"date"`
	DemandForecast     float64   `json:"demandForecast"`
	LowerBound         float64   `json:"lowerBound"`
	UpperBound         float64   `json:"upperBound"`
	FestivalMultiplier float64   `json:"festivalMultiplier"`
}

// ForecastResult is produced once per forecast request and never mutated
type ForecastResult struct {
	SKU         string            `json:"sku"`
	Category    string            `json:"category"`
	Predictions []DailyPrediction `json:"predictions"`
	Confidence  float64           `json:"confidence"`
	Methodology Methodology       `json:"methodology"`
	Assumptions []string          `json:"assumptions"`
	Warnings    []Warning         `json:"warnings,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// TotalDemand sums the point forecast over the first days predictions.
// days <= 0 or beyond the horizon means the whole horizon.
func (f *ForecastResult) TotalDemand(days int) float64 {
	if days <= 0 || days > len(f.Predictions) {
		days = len(f.Predictions)
	}
	var total float64
	for _, p := range f.Predictions[:days] {
		total += p.DemandForecast
	}
	return total
}

// MeanDailyDemand is the average point forecast across the horizon.
func (f *ForecastResult) MeanDailyDemand() float64 {
	if len(f.Predictions) == 0 {
		return 0
	}
	return f.TotalDemand(0) / float64(len(f.Predictions))
}

// StockoutRisk describes the chance and cost of running out
type StockoutRisk struct {
	Probability           float64 `json:"probability"`
	DaysUntilStockout     int     `json:"daysUntilStockout"`
	StockoutWithinHorizon bool    `json:"stockoutWithinHorizon"`
	PotentialLostSales    float64 `json:"potentialLostSales"`
	Severity              Level   `json:"severity"`
}

// OverstockRisk describes the chance and cost of holding too much
type OverstockRisk struct {
	Probability  float64 `json:"probability"`
	ExcessUnits  float64 `json:"excessUnits"`
	CarryingCost float64 `json:"carryingCost"`
	Overstocked  bool    `json:"overstocked"`
	Severity     Level   `json:"severity"`
}

// Alert is emitted when a risk probability reaches the medium bracket
type Alert struct {
	Type        AlertType `json:"type"`
	Severity    Level     `json:"severity"`
	Probability float64   `json:"probability"`
	Message     string    `json:"message"`
}

// ReorderRecommendation is the actionable output for one SKU
type ReorderRecommendation struct {
	Action            Action   `json:"action"`
	SuggestedQuantity float64  `json:"suggestedQuantity"`
	Urgency           Level    `json:"urgency"`
	Reasoning         []string `json:"reasoning"`
	Confidence        float64  `json:"confidence"`
}

// RiskAssessment is derived from one ForecastResult and one inventory snapshot
type RiskAssessment struct {
	SKU            string                `json:"sku"`
	Category       string                `json:"category"`
	CurrentStock   float64               `json:"currentStock"`
	StockoutRisk   StockoutRisk          `json:"stockoutRisk"`
	OverstockRisk  OverstockRisk         `json:"overstockRisk"`
	Recommendation ReorderRecommendation `json:"recommendation"`
	Alerts         []Alert               `json:"alerts"`

	// Drivers carried for the recommendation engine and explanations
	LeadTimeDays         int         `json:"leadTimeDays"`
	SafetyStockDays      int         `json:"safetyStockDays"`
	LeadTimeDemand       float64     `json:"leadTimeDemand"`
	LeadTimeSafetyDemand float64     `json:"leadTimeSafetyDemand"`
	HorizonDemand        float64     `json:"horizonDemand"`
	HorizonDays          int         `json:"horizonDays"`
	ForecastConfidence   float64     `json:"forecastConfidence"`
	ForecastMethodology  Methodology `json:"forecastMethodology"`
	AssessedAt           time.Time   `json:"assessedAt"`
}

// InventorySnapshot is the stored stock level for a user's SKU
type InventorySnapshot struct {
	UserID       string    `json:"userId" db:"user_id"`
	SKU          string    `json:"sku" db:"sku"`
	CurrentStock float64   `json:"currentStock" db:"current_stock"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ResultKey identifies a stored result for idempotent upserts
type ResultKey struct {
	UserID    string `json:"userId"`
	SKU       string `json:"sku"`
	RequestID string `json:"requestId"`
}
