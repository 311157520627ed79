// Package festival merges calendar events into per-day, per-category demand multipliers.
package festival

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
)

// Baseline is the multiplier for a day without any applicable festival
const Baseline = 1.0

// AllRegions on an event makes it apply to every queried region
const AllRegions = "all"

// CalendarLookup returns festival events starting inside a date range for any of the regions.
type CalendarLookup interface {
	Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error)
}

// Multipliers maps date key -> category -> combined multiplier
type Multipliers map[string]map[string]float64

// At returns the multiplier for a day and category, Baseline when unknown.
func (m Multipliers) At(date time.Time, category string) float64 {
	if m == nil {
		return Baseline
	}
	byCat, ok := m[domain.DateKey(date)]
	if !ok {
		return Baseline
	}
	v, ok := byCat[normalize(category)]
	if !ok || v < Baseline {
		return Baseline
	}
	return v
}

// Flatten lists the multipliers ordered by date then category.
func (m Multipliers) Flatten() []domain.ResolvedDayMultiplier {
	out := make([]domain.ResolvedDayMultiplier, 0, len(m))
	for key, byCat := range m {
		date, err := domain.ParseDate(key)
		if err != nil {
			continue
		}
		for cat, v := range byCat {
			out = append(out, domain.ResolvedDayMultiplier{Date: date, Category: cat, Multiplier: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Resolve combines every event that applies to the regions into one multiplier per day and category.
// Overlapping events take the maximum multiplier; they are not compounded.
func Resolve(events []domain.FestivalEvent, regions []string, dateRange domain.DateRange, categories []string) (Multipliers, error) {
	if err := dateRange.Validate(domain.MaxResolveDays); err != nil {
		return nil, err
	}
	regionSet := toSet(regions)
	if len(regionSet) == 0 {
		return nil, &domain.ValidationError{Field: "regions", Reason: "at least one region is required"}
	}
	cats := normalizeAll(categories)
	if len(cats) == 0 {
		return nil, &domain.ValidationError{Field: "categories", Reason: "at least one category is required"}
	}

	applicable := make([]domain.FestivalEvent, 0, len(events))
	for _, ev := range events {
		if appliesToRegions(ev, regionSet) {
			applicable = append(applicable, ev)
		}
	}

	out := make(Multipliers, dateRange.Days())
	for _, d := range dateRange.Each() {
		byCat := make(map[string]float64, len(cats))
		for _, cat := range cats {
			combined := Baseline
			for _, ev := range applicable {
				if v, ok := EffectiveMultiplier(ev, d, cat); ok && v > combined {
					combined = v
				}
			}
			byCat[cat] = combined
		}
		out[domain.DateKey(d)] = byCat
	}
	return out, nil
}

// EffectiveMultiplier is the uplift ev contributes to category on day. Only days in
// [start, start+duration) carry the event multiplier; preparation days before the start stay
// at Baseline and ok is false for them.
func EffectiveMultiplier(ev domain.FestivalEvent, day time.Time, category string) (float64, bool) {
	m := eventMultiplier(ev, category)
	start := domain.DayOf(ev.StartDate)
	duration := ev.DurationDays
	if duration < 1 {
		duration = 1
	}

	offset := domain.DaysBetween(start, day)
	if offset < 0 || offset >= duration {
		return 0, false
	}
	return m, true
}

func eventMultiplier(ev domain.FestivalEvent, category string) float64 {
	for cat, v := range ev.DemandMultipliers {
		if normalize(cat) != category {
			continue
		}
		if v < Baseline {
			log.Warn().Str("festival_id", ev.FestivalID).Str("category", cat).Float64("multiplier", v).
				Msg("festival multiplier below baseline, clamping")
			return Baseline
		}
		return v
	}
	return Baseline
}

func appliesToRegions(ev domain.FestivalEvent, regions map[string]struct{}) bool {
	for _, r := range ev.Regions {
		r = normalize(r)
		if r == AllRegions {
			return true
		}
		if _, ok := regions[r]; ok {
			return true
		}
	}
	return false
}

// Resolution is the outcome of resolving against the calendar collaborator
type Resolution struct {
	Multipliers Multipliers
	Events      []domain.FestivalEvent
	Degraded    bool
}

// ResolverConfig bounds the calendar call
type ResolverConfig struct {
	Retry         retry.Policy
	LookbackDays  int // widen the lookup so festivals already running are found
	LookaheadDays int // widen the lookup so upcoming festivals are listed
}

// DefaultResolverConfig returns sensible defaults
func DefaultResolverConfig() ResolverConfig {
	p := retry.DefaultPolicy()
	p.Timeout = 2 * time.Second
	return ResolverConfig{
		Retry:         p,
		LookbackDays:  30,
		LookaheadDays: 31,
	}
}

// Resolver resolves multipliers using a calendar collaborator and never blocks forecasting on it.
type Resolver struct {
	lookup CalendarLookup
	cfg    ResolverConfig
}

// NewResolver creates a Resolver
func NewResolver(lookup CalendarLookup, cfg ResolverConfig) *Resolver {
	return &Resolver{lookup: lookup, cfg: cfg}
}

// ResolveFor looks up the calendar and resolves multipliers. Calendar failures degrade to
// baseline multipliers with Degraded set; only invalid input returns an error.
func (r *Resolver) ResolveFor(ctx context.Context, regions []string, dateRange domain.DateRange, categories []string) (Resolution, error) {
	baseline, err := Resolve(nil, regions, dateRange, categories)
	if err != nil {
		return Resolution{}, err
	}
	if r.lookup == nil {
		return Resolution{Multipliers: baseline, Degraded: true}, nil
	}

	window := domain.DateRange{
		Start: domain.DayOf(dateRange.Start).AddDate(0, 0, -r.cfg.LookbackDays),
		End:   domain.DayOf(dateRange.End).AddDate(0, 0, r.cfg.LookaheadDays),
	}

	var events []domain.FestivalEvent
	err = retry.Do(ctx, r.cfg.Retry, func(ctx context.Context) error {
		found, err := r.lookup.Lookup(ctx, normalizeAll(regions), window)
		if err != nil {
			return err
		}
		events = found
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Strs("regions", regions).Str("start", domain.DateKey(dateRange.Start)).
			Msg("festival calendar lookup failed, using baseline multipliers")
		return Resolution{Multipliers: baseline, Degraded: true}, nil
	}

	resolved, err := Resolve(events, regions, dateRange, categories)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Multipliers: resolved, Events: events}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeAll(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range normalizeAll(values) {
		set[v] = struct{}{}
	}
	return set
}
