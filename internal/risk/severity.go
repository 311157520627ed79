package risk

import "github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"

// Thresholds brackets a probability into a severity level
type Thresholds struct {
	Medium float64 // probabilities at or above this are medium
	High   float64 // probabilities above this are high
}

// DefaultThresholds: <30% low, 30-60% medium, >60% high
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.30, High: 0.60}
}

// Severity returns the bracket containing p.
func (t Thresholds) Severity(p float64) domain.Level {
	switch {
	case p < t.Medium:
		return domain.LevelLow
	case p <= t.High:
		return domain.LevelMedium
	default:
		return domain.LevelHigh
	}
}

// ShouldAlert reports whether p has crossed out of the low bracket.
func (t Thresholds) ShouldAlert(p float64) bool {
	return p >= t.Medium
}
