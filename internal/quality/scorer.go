// Package quality grades sales history and decides between structured and low-data forecasting.
package quality

import (
	"math"
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Config holds the decision thresholds
type Config struct {
	WindowDays        int     // trailing window for completeness
	MinCompleteness   float64 // structured path floor
	MaxRecencyDays    int     // structured path ceiling
	MaxVariationCoeff float64 // above this the history is inconsistent
	GoodCompleteness  float64
	GoodRecencyDays   int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WindowDays:        90,
		MinCompleteness:   0.5,
		MaxRecencyDays:    14,
		MaxVariationCoeff: 1.5,
		GoodCompleteness:  0.8,
		GoodRecencyDays:   7,
	}
}

// Decision is the scorer output
type Decision struct {
	Quality        domain.Quality   `json:"quality"`
	UseStructured  bool             `json:"useStructured"`
	Completeness   float64          `json:"completeness"`
	RecencyDays    int              `json:"recencyDays"` // -1 without history
	HasHistory     bool             `json:"hasHistory"`
	VariationCoeff float64          `json:"variationCoeff"`
	Inconsistent   bool             `json:"inconsistent"`
	Warnings       []domain.Warning `json:"warnings,omitempty"`
}

// Scorer is stateless; one instance can be shared across goroutines.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer
func NewScorer(cfg Config) *Scorer {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}
	return &Scorer{cfg: cfg}
}

// Score grades history as of the given day. Estimates only influence the grade of the
// low-data path, never the choice of path.
func (s *Scorer) Score(history []domain.SalesObservation, estimates []domain.InventoryEstimate, asOf time.Time) Decision {
	asOf = domain.DayOf(asOf)
	d := Decision{RecencyDays: -1}

	windowStart := asOf.AddDate(0, 0, -s.cfg.WindowDays)
	cells := make(map[string]struct{})
	skus := make(map[string]struct{})
	dailyTotals := make(map[string]float64)
	var latest time.Time

	for _, obs := range history {
		day := domain.DayOf(obs.Date)
		if day.After(asOf) {
			continue
		}
		if latest.IsZero() || day.After(latest) {
			latest = day
		}
		if day.Before(windowStart) || !day.Before(asOf) {
			continue
		}
		key := domain.DateKey(day)
		skus[obs.SKU] = struct{}{}
		cells[key+"|"+obs.SKU] = struct{}{}
		dailyTotals[key] += obs.QuantitySold
	}

	if !latest.IsZero() {
		d.HasHistory = true
		d.RecencyDays = domain.DaysBetween(latest, asOf)
	}
	if expected := len(skus) * s.cfg.WindowDays; expected > 0 {
		d.Completeness = domain.Clamp01(float64(len(cells)) / float64(expected))
	}
	d.VariationCoeff = variationCoeff(dailyTotals)
	d.Inconsistent = d.VariationCoeff > s.cfg.MaxVariationCoeff

	d.UseStructured = d.HasHistory &&
		d.Completeness >= s.cfg.MinCompleteness &&
		d.RecencyDays <= s.cfg.MaxRecencyDays &&
		!d.Inconsistent

	if d.UseStructured {
		d.Quality = domain.QualityFair
		if d.Completeness >= s.cfg.GoodCompleteness && d.RecencyDays <= s.cfg.GoodRecencyDays {
			d.Quality = domain.QualityGood
		}
	} else {
		d.Quality = domain.QualityPoor
		if len(estimates) > 0 && meanTagRank(estimates) >= tagRank[domain.ConfidenceMedium] {
			d.Quality = domain.QualityFair
		}
	}

	d.Warnings = s.warnings(d, estimates)
	return d
}

func (s *Scorer) warnings(d Decision, estimates []domain.InventoryEstimate) []domain.Warning {
	var out []domain.Warning
	if !d.UseStructured {
		out = append(out, domain.WarnInsufficientHistory)
	}
	if d.HasHistory && d.RecencyDays > s.cfg.MaxRecencyDays {
		out = append(out, domain.WarnStaleHistory)
	}
	if d.Inconsistent {
		out = append(out, domain.WarnInconsistentHistory)
	}
	if !d.UseStructured && len(estimates) == 0 {
		out = append(out, domain.WarnNoEstimates)
	}
	return out
}

var tagRank = map[domain.ConfidenceTag]float64{
	domain.ConfidenceLow:    0,
	domain.ConfidenceMedium: 1,
	domain.ConfidenceHigh:   2,
}

func meanTagRank(estimates []domain.InventoryEstimate) float64 {
	var sum float64
	for _, e := range estimates {
		sum += tagRank[e.ConfidenceTag]
	}
	return sum / float64(len(estimates))
}

// variationCoeff is the population std / mean of the populated daily totals.
func variationCoeff(totals map[string]float64) float64 {
	if len(totals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range totals {
		sum += v
	}
	mean := sum / float64(len(totals))
	if mean <= 0 {
		return 0
	}
	var sq float64
	for _, v := range totals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq/float64(len(totals))) / mean
}
