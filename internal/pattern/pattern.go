// Package pattern provides synthetic weekly and monthly demand curves per business type and region.
package pattern

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Wildcard matches any region
const Wildcard = "*"

// FallbackType is used when a business type has no curve of its own
const FallbackType = "general"

// Pattern is a baseline demand shape. Weekly is indexed Sunday..Saturday, Monthly January..December.
type Pattern struct {
	BusinessType   string      `json:"businessType"`
	Region         string      `json:"region"`
	Weekly         [7]float64  `json:"weekly"`
	Monthly        [12]float64 `json:"monthly"`
	BaseDailyUnits float64     `json:"baseDailyUnits"`
}

// Factor is the seasonal multiplier for a day.
func (p Pattern) Factor(day time.Time) float64 {
	return p.Weekly[day.Weekday()] * p.Monthly[day.Month()-1]
}

// Validate rejects curves that would produce negative or undefined demand.
func (p Pattern) Validate() error {
	if strings.TrimSpace(p.BusinessType) == "" {
		return fmt.Errorf("pattern: business type is required")
	}
	for i, v := range p.Weekly {
		if v < 0 || v != v {
			return fmt.Errorf("pattern %s: weekly[%d] = %v", p.BusinessType, i, v)
		}
	}
	for i, v := range p.Monthly {
		if v <= 0 || v != v {
			return fmt.Errorf("pattern %s: monthly[%d] = %v", p.BusinessType, i, v)
		}
	}
	if p.BaseDailyUnits < 0 {
		return fmt.Errorf("pattern %s: negative base daily units", p.BusinessType)
	}
	return nil
}

// normalized returns a copy with weekly factors scaled to mean 1.
func (p Pattern) normalized() Pattern {
	var sum float64
	for _, v := range p.Weekly {
		sum += v
	}
	if sum <= 0 {
		for i := range p.Weekly {
			p.Weekly[i] = 1
		}
	} else {
		mean := sum / 7
		for i := range p.Weekly {
			p.Weekly[i] /= mean
		}
	}
	p.BusinessType = normalize(p.BusinessType)
	p.Region = normalize(p.Region)
	if p.Region == "" {
		p.Region = Wildcard
	}
	return p
}

// Curve is the baseline daily demand for days consecutive days from start. averageDailySales
// scales the curve; when it is not positive the pattern's own base units are used.
func Curve(p Pattern, start time.Time, days int, averageDailySales float64) []float64 {
	base := averageDailySales
	if base <= 0 {
		base = p.BaseDailyUnits
	}
	out := make([]float64, days)
	for i := range out {
		out[i] = base * p.Factor(start.AddDate(0, 0, i))
	}
	return out
}

// Source resolves the pattern for a business.
type Source interface {
	Pattern(businessType, region string) Pattern
}

// Snapshot is an immutable, versioned set of patterns.
type Snapshot struct {
	version  string
	patterns map[string]Pattern
}

// NewSnapshot normalizes and indexes patterns. A "general" wildcard curve is always present.
func NewSnapshot(version string, patterns []Pattern) *Snapshot {
	s := &Snapshot{version: version, patterns: make(map[string]Pattern, len(patterns)+1)}
	for _, p := range patterns {
		n := p.normalized()
		s.patterns[key(n.BusinessType, n.Region)] = n
	}
	if _, ok := s.patterns[key(FallbackType, Wildcard)]; !ok {
		s.patterns[key(FallbackType, Wildcard)] = generalPattern().normalized()
	}
	return s
}

// Version identifies the pattern data
func (s *Snapshot) Version() string { return s.version }

// Len is the number of patterns held
func (s *Snapshot) Len() int { return len(s.patterns) }

// Pattern looks up (type, region), then (type, *), then (general, *).
func (s *Snapshot) Pattern(businessType, region string) Pattern {
	bt, r := normalize(businessType), normalize(region)
	if p, ok := s.patterns[key(bt, r)]; ok {
		return p
	}
	if p, ok := s.patterns[key(bt, Wildcard)]; ok {
		return p
	}
	return s.patterns[key(FallbackType, Wildcard)]
}

// Holder publishes snapshots to concurrent readers. Readers always see one whole snapshot.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder starts with initial
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Load returns the current snapshot
func (h *Holder) Load() *Snapshot { return h.current.Load() }

// Swap installs next and returns the previous snapshot.
func (h *Holder) Swap(next *Snapshot) *Snapshot { return h.current.Swap(next) }

// Pattern reads from the current snapshot
func (h *Holder) Pattern(businessType, region string) Pattern {
	return h.Load().Pattern(businessType, region)
}

func key(businessType, region string) string {
	return businessType + "|" + region
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
