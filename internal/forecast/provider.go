// Package forecast turns history, estimates and festival multipliers into daily demand predictions.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pattern"
)

// BasePoint is one day of a provider curve before festival uplift
type BasePoint struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// BaseCurve has one BasePoint per horizon day
type BaseCurve []BasePoint

// ProviderRequest is what a provider gets to build a base curve.
type ProviderRequest struct {
	SKU          string
	Category     string
	BusinessType string
	Region       string
	History      []domain.SalesObservation
	Start        time.Time
	HorizonDays  int
}

// Provider produces a base daily demand curve with uncertainty bounds.
type Provider interface {
	Predict(ctx context.Context, req ProviderRequest) (BaseCurve, error)
}

// checkCurve rejects curves a provider should never return.
func checkCurve(c BaseCurve, horizonDays int) error {
	if len(c) != horizonDays {
		return fmt.Errorf("curve has %d points, want %d", len(c), horizonDays)
	}
	for i, p := range c {
		for _, v := range []float64{p.Point, p.Lower, p.Upper} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("day %d: invalid value %v", i, v)
			}
		}
	}
	return nil
}

// HistoricalProvider forecasts each weekday as the trailing mean of that weekday, with bounds one
// standard deviation either side. It runs offline and needs no external model.
type HistoricalProvider struct {
	WindowDays int
}

// NewHistoricalProvider creates a HistoricalProvider over a trailing window
func NewHistoricalProvider(windowDays int) *HistoricalProvider {
	if windowDays <= 0 {
		windowDays = 56
	}
	return &HistoricalProvider{WindowDays: windowDays}
}

// Predict implements Provider
func (h *HistoricalProvider) Predict(ctx context.Context, req ProviderRequest) (BaseCurve, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("historical provider", domain.ErrForecastProvider, err)
	}
	start := domain.DayOf(req.Start)
	daily := DailySeries(req.History, req.SKU, start.AddDate(0, 0, -h.WindowDays), start)
	if len(daily) == 0 {
		return nil, domain.Unavailable("historical provider", domain.ErrForecastProvider, errors.New("no history in window"))
	}

	var byWeekday [7][]float64
	var all []float64
	for _, d := range daily {
		byWeekday[d.Date.Weekday()] = append(byWeekday[d.Date.Weekday()], d.Quantity)
		all = append(all, d.Quantity)
	}
	overallMean, overallStd := meanStd(all)

	curve := make(BaseCurve, req.HorizonDays)
	for i := range curve {
		day := start.AddDate(0, 0, i)
		mean, std := overallMean, overallStd
		if obs := byWeekday[day.Weekday()]; len(obs) > 0 {
			mean, std = meanStd(obs)
		}
		curve[i] = BasePoint{Point: mean, Lower: math.Max(0, mean-std), Upper: mean + std}
	}
	return curve, nil
}

// PatternProvider satisfies Provider from synthetic patterns alone.
type PatternProvider struct {
	Patterns pattern.Source
	Variance float64
}

// Predict implements Provider
func (p *PatternProvider) Predict(ctx context.Context, req ProviderRequest) (BaseCurve, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("pattern provider", domain.ErrForecastProvider, err)
	}
	start := domain.DayOf(req.Start)
	avg := MeanDailySales(DailySeries(req.History, req.SKU, time.Time{}, start))
	pat := p.Patterns.Pattern(req.BusinessType, req.Region)
	return banded(pattern.Curve(pat, start, req.HorizonDays, avg), p.Variance), nil
}

// DayQuantity is the total sold on one day
type DayQuantity struct {
	Date     time.Time
	Quantity float64
}

// DailySeries totals observations per day for sku within [from, to). A zero from means unbounded.
// An empty sku keeps every observation.
func DailySeries(history []domain.SalesObservation, sku string, from, to time.Time) []DayQuantity {
	totals := make(map[time.Time]float64)
	for _, obs := range history {
		if sku != "" && !strings.EqualFold(obs.SKU, sku) {
			continue
		}
		day := domain.DayOf(obs.Date)
		if (!from.IsZero() && day.Before(from)) || !day.Before(to) {
			continue
		}
		totals[day] += obs.QuantitySold
	}
	out := make([]DayQuantity, 0, len(totals))
	for d, q := range totals {
		out = append(out, DayQuantity{Date: d, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MeanDailySales is the average of the series, 0 when empty.
func MeanDailySales(series []DayQuantity) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, d := range series {
		sum += d.Quantity
	}
	return sum / float64(len(series))
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// banded puts a ±cv band around each point, lower bound clamped at zero.
func banded(points []float64, cv float64) BaseCurve {
	out := make(BaseCurve, len(points))
	for i, v := range points {
		sd := v * cv
		out[i] = BasePoint{Point: v, Lower: math.Max(0, v-sd), Upper: v + sd}
	}
	return out
}
