package forecast

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pattern"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/quality"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
)

// Config holds the forecasting policy
type Config struct {
	MinHorizonDays       int
	MaxHorizonDays       int
	PatternVariance      float64 // coefficient of variation used for pattern bounds
	BaseConfidenceML     float64
	BaseConfidenceHybrid float64
	BaseConfidencePatt   float64
	FallbackPenalty      float64
	DegradedFestival     float64 // confidence factor when the calendar was unavailable
	HybridProviderWeight float64
	ProviderRetry        retry.Policy
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinHorizonDays:       7,
		MaxHorizonDays:       14,
		PatternVariance:      0.2,
		BaseConfidenceML:     0.85,
		BaseConfidenceHybrid: 0.75,
		BaseConfidencePatt:   0.65,
		FallbackPenalty:      0.8,
		DegradedFestival:     0.9,
		HybridProviderWeight: 0.7,
		ProviderRetry:        retry.DefaultPolicy(),
	}
}

var qualityFactor = map[domain.Quality]float64{
	domain.QualityGood: 1.0,
	domain.QualityFair: 0.85,
	domain.QualityPoor: 0.7,
}

var tagFactor = map[domain.ConfidenceTag]float64{
	domain.ConfidenceHigh:   1.0,
	domain.ConfidenceMedium: 0.9,
	domain.ConfidenceLow:    0.8,
}

// Request is a single SKU forecast request
type Request struct {
	SKU              string
	Category         string
	BusinessType     string
	Region           string
	Start            time.Time
	HorizonDays      int
	Multipliers      festival.Multipliers
	CalendarDegraded bool
	History          []domain.SalesObservation
	Estimates        []domain.InventoryEstimate
	Decision         quality.Decision
}

func (r Request) validate(cfg Config) error {
	if strings.TrimSpace(r.SKU) == "" {
		return &domain.ValidationError{Field: "sku", Reason: "is required"}
	}
	if strings.TrimSpace(r.Category) == "" {
		return &domain.ValidationError{Field: "category", Reason: "is required"}
	}
	if r.HorizonDays < cfg.MinHorizonDays || r.HorizonDays > cfg.MaxHorizonDays {
		return &domain.ValidationError{
			Field:  "horizonDays",
			Reason: fmt.Sprintf("must be between %d and %d", cfg.MinHorizonDays, cfg.MaxHorizonDays),
		}
	}
	if r.Start.IsZero() {
		return &domain.ValidationError{Field: "startDate", Reason: "is required"}
	}
	return nil
}

// Forecaster produces ForecastResults. It holds no per-request state.
type Forecaster struct {
	provider Provider
	patterns pattern.Source
	cfg      Config
	now      func() time.Time
}

// NewForecaster creates a Forecaster. provider may be nil, in which case every request
// takes the pattern path.
func NewForecaster(provider Provider, patterns pattern.Source, cfg Config) *Forecaster {
	if patterns == nil {
		patterns = pattern.DefaultSnapshot()
	}
	return &Forecaster{provider: provider, patterns: patterns, cfg: cfg, now: time.Now}
}

// Forecast builds the prediction for one SKU. Provider failures fall back to synthetic
// patterns; only validation errors and invariant violations are returned.
func (f *Forecaster) Forecast(ctx context.Context, req Request) (*domain.ForecastResult, error) {
	if err := req.validate(f.cfg); err != nil {
		return nil, err
	}
	start := domain.DayOf(req.Start)
	estimate := EstimateFor(req.Estimates, req.Category)

	b := &builder{
		result: &domain.ForecastResult{
			SKU:         req.SKU,
			Category:    req.Category,
			GeneratedAt: f.now().UTC(),
		},
	}
	b.warn(req.Decision.Warnings...)

	var curve BaseCurve
	fellBack := false
	if req.Decision.UseStructured && f.provider != nil {
		var err error
		curve, err = f.predict(ctx, req, start)
		if err != nil {
			log.Warn().Err(err).Str("sku", req.SKU).Msg("forecast provider failed, falling back to synthetic pattern")
			fellBack = true
			b.assume(fmt.Sprintf("fallback: forecast provider unavailable (%v), synthetic pattern used instead", err))
			b.warn(domain.WarnProviderFallback)
		}
	}

	switch {
	case curve != nil && req.Decision.Quality == domain.QualityFair && estimate != nil:
		b.result.Methodology = domain.MethodologyHybrid
		patt := f.patternCurve(req, start, estimate.AverageDailySales)
		curve = blend(curve, patt, f.cfg.HybridProviderWeight)
		b.assume("methodology: hybrid, forecast provider curve blended with synthetic pattern scaled to the inventory estimate")
		b.assume(fmt.Sprintf("blend weight: %.2f provider / %.2f pattern", f.cfg.HybridProviderWeight, 1-f.cfg.HybridProviderWeight))
		b.assume("synthetic pattern used: yes")
	case curve != nil:
		b.result.Methodology = domain.MethodologyML
		b.assume("methodology: ml, base curve from forecast provider trained on sales history")
		b.assume("synthetic pattern used: no")
	default:
		b.result.Methodology = domain.MethodologyPattern
		avg, source := f.baseline(req, start, estimate)
		curve = f.patternCurve(req, start, avg)
		p := f.patterns.Pattern(req.BusinessType, req.Region)
		b.assume("methodology: pattern, synthetic weekly and monthly seasonality")
		b.assume(fmt.Sprintf("synthetic pattern used: yes (%s/%s)", p.BusinessType, p.Region))
		b.assume(fmt.Sprintf("baseline daily sales %.2f from %s", avg, source))
		b.assume(fmt.Sprintf("bounds: ±%.0f%% of forecast", f.cfg.PatternVariance*100))
		if !req.Decision.UseStructured {
			b.warn(domain.WarnInsufficientHistory)
		}
	}

	festivalDays := 0
	b.result.Predictions = make([]domain.DailyPrediction, len(curve))
	for i, pt := range curve {
		day := start.AddDate(0, 0, i)
		m := req.Multipliers.At(day, req.Category)
		if m > festival.Baseline {
			festivalDays++
		}
		lower, upper := math.Min(pt.Lower, pt.Point), math.Max(pt.Upper, pt.Point)
		b.result.Predictions[i] = domain.DailyPrediction{
			Date:               day,
			DemandForecast:     pt.Point * m,
			LowerBound:         math.Max(0, lower*m),
			UpperBound:         upper * m,
			FestivalMultiplier: m,
		}
	}

	if req.CalendarDegraded {
		b.assume("festival calendar unavailable: no festival uplift applied")
		b.warn(domain.WarnCalendarDegraded)
	} else {
		b.assume(fmt.Sprintf("festival uplift applied on %d of %d days", festivalDays, len(curve)))
	}

	b.result.Confidence = f.confidence(b.result.Methodology, req, estimate, fellBack)

	if err := b.result.Validate(req.HorizonDays); err != nil {
		log.Error().Err(err).Str("sku", req.SKU).Msg("forecast failed invariant checks")
		return nil, err
	}
	return b.result, nil
}

func (f *Forecaster) predict(ctx context.Context, req Request, start time.Time) (BaseCurve, error) {
	preq := ProviderRequest{
		SKU:          req.SKU,
		Category:     req.Category,
		BusinessType: req.BusinessType,
		Region:       req.Region,
		History:      req.History,
		Start:        start,
		HorizonDays:  req.HorizonDays,
	}
	var curve BaseCurve
	err := retry.Do(ctx, f.cfg.ProviderRetry, func(ctx context.Context) error {
		c, err := f.provider.Predict(ctx, preq)
		if err != nil {
			return err
		}
		if err := checkCurve(c, req.HorizonDays); err != nil {
			return retry.Permanent(domain.Unavailable(providerName, domain.ErrForecastProvider, err))
		}
		curve = c
		return nil
	})
	return curve, err
}

// baseline picks the daily sales level for the pattern path: estimate, then history, then the
// pattern's own base units.
func (f *Forecaster) baseline(req Request, start time.Time, estimate *domain.InventoryEstimate) (float64, string) {
	if estimate != nil && estimate.AverageDailySales > 0 {
		return estimate.AverageDailySales, "inventory estimate"
	}
	if avg := MeanDailySales(DailySeries(req.History, req.SKU, time.Time{}, start)); avg > 0 {
		return avg, "sales history mean"
	}
	return f.patterns.Pattern(req.BusinessType, req.Region).BaseDailyUnits, "pattern base units"
}

func (f *Forecaster) patternCurve(req Request, start time.Time, avg float64) BaseCurve {
	p := f.patterns.Pattern(req.BusinessType, req.Region)
	return banded(pattern.Curve(p, start, req.HorizonDays, avg), f.cfg.PatternVariance)
}

// confidence = base(methodology) × quality × festival availability, penalised on fallback.
func (f *Forecaster) confidence(m domain.Methodology, req Request, estimate *domain.InventoryEstimate, fellBack bool) float64 {
	var base float64
	switch m {
	case domain.MethodologyML:
		base = f.cfg.BaseConfidenceML
	case domain.MethodologyHybrid:
		base = f.cfg.BaseConfidenceHybrid
	default:
		base = f.cfg.BaseConfidencePatt
	}

	qf, ok := qualityFactor[req.Decision.Quality]
	if !ok {
		qf = qualityFactor[domain.QualityPoor]
	}
	c := base * qf

	if m == domain.MethodologyPattern && estimate != nil {
		if tf, ok := tagFactor[estimate.ConfidenceTag]; ok {
			c *= tf
		} else {
			c *= tagFactor[domain.ConfidenceLow]
		}
	}
	if req.CalendarDegraded {
		c *= f.cfg.DegradedFestival
	}
	if fellBack {
		c *= f.cfg.FallbackPenalty
	}
	return domain.Clamp01(c)
}

// EstimateFor returns the estimate for category, or nil.
func EstimateFor(estimates []domain.InventoryEstimate, category string) *domain.InventoryEstimate {
	for i := range estimates {
		if strings.EqualFold(strings.TrimSpace(estimates[i].Category), strings.TrimSpace(category)) {
			return &estimates[i]
		}
	}
	return nil
}

func blend(provider, patt BaseCurve, weight float64) BaseCurve {
	out := make(BaseCurve, len(provider))
	for i := range provider {
		out[i] = BasePoint{
			Point: weight*provider[i].Point + (1-weight)*patt[i].Point,
			Lower: weight*provider[i].Lower + (1-weight)*patt[i].Lower,
			Upper: weight*provider[i].Upper + (1-weight)*patt[i].Upper,
		}
	}
	return out
}

type builder struct {
	result *domain.ForecastResult
	seen   map[domain.Warning]bool
}

func (b *builder) assume(s string) {
	b.result.Assumptions = append(b.result.Assumptions, s)
}

func (b *builder) warn(ws ...domain.Warning) {
	if b.seen == nil {
		b.seen = make(map[domain.Warning]bool)
	}
	for _, w := range ws {
		if b.seen[w] {
			continue
		}
		b.seen[w] = true
		b.result.Warnings = append(b.result.Warnings, w)
	}
}
