package festival

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
)

var day0 = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func event(id string, startOffset, duration int, regions []string, mult map[string]float64) domain.FestivalEvent {
	return domain.FestivalEvent{
		FestivalID:        id,
		Name:              id,
		StartDate:         day0.AddDate(0, 0, startOffset),
		Regions:           regions,
		DemandMultipliers: mult,
		DurationDays:      duration,
	}
}

func TestResolve_BaselineOutsideFestival(t *testing.T) {
	diwali := event("diwali", 5, 5, []string{"north"}, map[string]float64{"grocery": 2.5})

	m, err := Resolve([]domain.FestivalEvent{diwali}, []string{"north"}, domain.NewDateRange(day0, 14), []string{"grocery"})
	require.NoError(t, err)
	require.Len(t, m, 14)

	for i := 0; i < 14; i++ {
		d := day0.AddDate(0, 0, i)
		if i >= 5 && i <= 9 {
			assert.Equal(t, 2.5, m.At(d, "grocery"), "day %d", i)
		} else {
			assert.Equal(t, 1.0, m.At(d, "grocery"), "day %d", i)
		}
	}
}

func TestResolve_OverlapTakesMaximum(t *testing.T) {
	events := []domain.FestivalEvent{
		event("a", 2, 4, []string{"north"}, map[string]float64{"grocery": 1.8, "apparel": 3.0}),
		event("b", 4, 4, []string{"north"}, map[string]float64{"grocery": 2.2}),
	}
	m, err := Resolve(events, []string{"north"}, domain.NewDateRange(day0, 10), []string{"grocery", "apparel"})
	require.NoError(t, err)

	assert.Equal(t, 1.8, m.At(day0.AddDate(0, 0, 3), "grocery"))
	assert.Equal(t, 2.2, m.At(day0.AddDate(0, 0, 4), "grocery"))
	assert.Equal(t, 2.2, m.At(day0.AddDate(0, 0, 5), "grocery"))
	assert.Equal(t, 3.0, m.At(day0.AddDate(0, 0, 5), "apparel"))
	assert.Equal(t, 1.0, m.At(day0.AddDate(0, 0, 7), "apparel"))
}

func TestResolve_RegionFilter(t *testing.T) {
	events := []domain.FestivalEvent{
		event("pongal", 1, 3, []string{"South"}, map[string]float64{"grocery": 2.0}),
		event("national", 6, 1, []string{"all"}, map[string]float64{"grocery": 1.5}),
	}
	m, err := Resolve(events, []string{"north"}, domain.NewDateRange(day0, 7), []string{"grocery"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.At(day0.AddDate(0, 0, 1), "grocery"))
	assert.Equal(t, 1.5, m.At(day0.AddDate(0, 0, 6), "grocery"))

	m, err = Resolve(events, []string{"south"}, domain.NewDateRange(day0, 7), []string{"grocery"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.At(day0.AddDate(0, 0, 1), "grocery"))
}

func TestResolve_PreparationDaysStayAtBaseline(t *testing.T) {
	diwali := event("diwali", 5, 5, []string{"north"}, map[string]float64{"grocery": 2.5})
	diwali.PreparationDays = 14

	m, err := Resolve([]domain.FestivalEvent{diwali}, []string{"north"}, domain.NewDateRange(day0, 14), []string{"grocery"})
	require.NoError(t, err)

	for i := 0; i < 14; i++ {
		d := day0.AddDate(0, 0, i)
		if i >= 5 && i <= 9 {
			assert.Equal(t, 2.5, m.At(d, "grocery"), "day %d", i)
		} else {
			assert.Equal(t, 1.0, m.At(d, "grocery"), "day %d", i)
		}
	}
}

func TestResolve_ClampsMultipliersBelowBaseline(t *testing.T) {
	ev := event("fast", 0, 3, []string{"north"}, map[string]float64{"grocery": 0.4})
	m, err := Resolve([]domain.FestivalEvent{ev}, []string{"north"}, domain.NewDateRange(day0, 3), []string{"grocery"})
	require.NoError(t, err)
	for _, v := range m.Flatten() {
		assert.Equal(t, 1.0, v.Multiplier)
	}
}

func TestResolve_Validation(t *testing.T) {
	tests := []struct {
		name       string
		regions    []string
		dateRange  domain.DateRange
		categories []string
		field      string
	}{
		{"too long", []string{"north"}, domain.NewDateRange(day0, 61), []string{"grocery"}, "dateRange"},
		{"reversed", []string{"north"}, domain.DateRange{Start: day0, End: day0.AddDate(0, 0, -1)}, []string{"grocery"}, "dateRange"},
		{"no regions", nil, domain.NewDateRange(day0, 7), []string{"grocery"}, "regions"},
		{"no categories", []string{"north"}, domain.NewDateRange(day0, 7), []string{" "}, "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(nil, tt.regions, tt.dateRange, tt.categories)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

// Every resolved multiplier is at least 1 and at least the largest single festival covering that day.
func TestResolve_RandomCalendarsRespectBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cats := []string{"grocery", "apparel"}

	for round := 0; round < 50; round++ {
		var events []domain.FestivalEvent
		n := rng.Intn(6)
		for i := 0; i < n; i++ {
			events = append(events, event("f", rng.Intn(20)-5, 1+rng.Intn(5), []string{"north"}, map[string]float64{
				cats[rng.Intn(len(cats))]: 0.5 + rng.Float64()*3,
			}))
		}
		dr := domain.NewDateRange(day0, 7+rng.Intn(8))
		m, err := Resolve(events, []string{"north"}, dr, cats)
		require.NoError(t, err)

		for _, d := range dr.Each() {
			for _, cat := range cats {
				got := m.At(d, cat)
				assert.GreaterOrEqual(t, got, 1.0)
				for _, ev := range events {
					if v, ok := EffectiveMultiplier(ev, d, cat); ok {
						assert.GreaterOrEqual(t, got, v)
					}
				}
			}
		}
	}
}

type failingLookup struct{ calls int }

func (f *failingLookup) Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error) {
	f.calls++
	return nil, domain.Unavailable("calendar", domain.ErrCalendarUnavailable, errors.New("connection refused"))
}

func testResolverConfig() ResolverConfig {
	return ResolverConfig{
		Retry:         retry.Policy{Attempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		LookbackDays:  30,
		LookaheadDays: 31,
	}
}

func TestResolver_DegradesOnCalendarFailure(t *testing.T) {
	lookup := &failingLookup{}
	r := NewResolver(lookup, testResolverConfig())

	res, err := r.ResolveFor(context.Background(), []string{"north"}, domain.NewDateRange(day0, 7), []string{"grocery"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 2, lookup.calls)
	for _, v := range res.Multipliers.Flatten() {
		assert.Equal(t, 1.0, v.Multiplier)
	}
}

func TestResolver_FindsFestivalsStartedBeforeRange(t *testing.T) {
	snap := NewSnapshot("v1", []domain.FestivalEvent{
		event("navratri", -3, 9, []string{"west"}, map[string]float64{"apparel": 1.6}),
		event("diwali", 20, 5, []string{"west"}, map[string]float64{"apparel": 2.0}),
	})
	r := NewResolver(snap, testResolverConfig())

	res, err := r.ResolveFor(context.Background(), []string{"West"}, domain.NewDateRange(day0, 7), []string{"apparel"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, 1.6, res.Multipliers.At(day0, "apparel"))
	assert.Equal(t, 1.6, res.Multipliers.At(day0.AddDate(0, 0, 5), "apparel"))
	assert.Equal(t, 1.0, res.Multipliers.At(day0.AddDate(0, 0, 6), "apparel"))
}

func TestResolver_ValidationIsNotDegraded(t *testing.T) {
	r := NewResolver(&failingLookup{}, testResolverConfig())
	_, err := r.ResolveFor(context.Background(), []string{"north"}, domain.NewDateRange(day0, 90), []string{"grocery"})
	assert.Equal(t, "validation", domain.ErrorKind(err))
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := NewSnapshot("2026.10", []domain.FestivalEvent{
		event("late", 10, 1, []string{"north"}, nil),
		event("early", 1, 1, []string{"north"}, nil),
		event("south", 2, 1, []string{"south"}, nil),
	})
	assert.Equal(t, "2026.10", snap.Version())
	assert.Equal(t, 3, snap.Len())

	got, err := snap.Lookup(context.Background(), []string{"north"}, domain.NewDateRange(day0, 11))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].FestivalID)
	assert.Equal(t, "late", got[1].FestivalID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = snap.Lookup(ctx, []string{"north"}, domain.NewDateRange(day0, 11))
	assert.ErrorIs(t, err, domain.ErrCalendarUnavailable)
}
