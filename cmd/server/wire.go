package main

import (
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/forecast"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pattern"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/quality"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/recommend"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/risk"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/service"
)

func retryPolicy(fc config.ForecastConfig, timeout time.Duration) retry.Policy {
	p := retry.DefaultPolicy()
	if fc.RetryAttempts > 0 {
		p.Attempts = fc.RetryAttempts
	}
	if fc.RetryBackoff > 0 {
		p.InitialBackoff = fc.RetryBackoff
	}
	if timeout > 0 {
		p.Timeout = timeout
	}
	return p
}

func resolverConfig(cfg *config.Config) festival.ResolverConfig {
	rc := festival.DefaultResolverConfig()
	rc.Retry = retryPolicy(cfg.Forecast, cfg.Forecast.CalendarTimeout)
	return rc
}

func forecastConfig(cfg *config.Config) forecast.Config {
	fc := forecast.DefaultConfig()
	f := cfg.Forecast
	fc.MinHorizonDays = f.MinHorizonDays
	fc.MaxHorizonDays = f.MaxHorizonDays
	fc.PatternVariance = f.PatternVariance
	fc.BaseConfidenceML = f.BaseConfidenceML
	fc.BaseConfidenceHybrid = f.BaseConfidenceHybrid
	fc.BaseConfidencePatt = f.BaseConfidencePatt
	fc.FallbackPenalty = f.FallbackPenalty
	fc.DegradedFestival = f.DegradedFestival
	fc.ProviderRetry = retryPolicy(f, f.ProviderTimeout)
	return fc
}

func providerConfig(cfg *config.Config) forecast.HTTPProviderConfig {
	return forecast.HTTPProviderConfig{
		URL:               cfg.Forecast.ProviderURL,
		Timeout:           cfg.Forecast.ProviderTimeout,
		RequestsPerSecond: cfg.Forecast.ProviderRPS,
		Burst:             cfg.Forecast.ProviderBurst,
	}
}

func qualityConfig(cfg *config.Config) quality.Config {
	qc := quality.DefaultConfig()
	qc.WindowDays = cfg.Quality.WindowDays
	qc.MinCompleteness = cfg.Quality.MinCompleteness
	qc.MaxRecencyDays = cfg.Quality.MaxRecencyDays
	qc.MaxVariationCoeff = cfg.Quality.MaxVariationCoeff
	return qc
}

func riskConfig(cfg *config.Config) risk.Config {
	rc := risk.DefaultConfig()
	r := cfg.Risk
	rc.Thresholds = risk.Thresholds{Medium: r.MediumThreshold, High: r.HighThreshold}
	rc.ExcessThreshold = r.ExcessThreshold
	rc.ShelfLifeBufferDays = r.ShelfLifeBufferDays
	rc.HoldingCostPerUnit = r.HoldingCostPerUnit
	rc.MaxHoldingDays = r.MaxHoldingDays
	return rc
}

func serviceConfig(cfg *config.Config) service.Config {
	sc := service.DefaultConfig()
	sc.MinHorizonDays = cfg.Forecast.MinHorizonDays
	sc.MaxHorizonDays = cfg.Forecast.MaxHorizonDays
	sc.DefaultLeadTimeDays = cfg.Risk.DefaultLeadTimeDays
	sc.DefaultSafetyDays = cfg.Risk.DefaultSafetyDays
	sc.HistoryWindowDays = cfg.Quality.WindowDays
	if cfg.Forecast.MaxItems > 0 {
		sc.MaxItems = cfg.Forecast.MaxItems
	}
	sc.StoreRetry = retryPolicy(cfg.Forecast, cfg.Forecast.StoreTimeout)
	return sc
}

// coreDependencies builds the stateless forecasting components from configuration.
// provider may be nil, in which case every SKU takes the pattern path.
func coreDependencies(cfg *config.Config, lookup festival.CalendarLookup, provider forecast.Provider, patterns pattern.Source) service.Dependencies {
	return service.Dependencies{
		Resolver:   festival.NewResolver(lookup, resolverConfig(cfg)),
		Scorer:     quality.NewScorer(qualityConfig(cfg)),
		Forecaster: forecast.NewForecaster(provider, patterns, forecastConfig(cfg)),
		Assessor:   risk.NewAssessor(riskConfig(cfg)),
		Engine:     recommend.NewEngine(recommend.Config{PackSize: cfg.Risk.PackSize}),
		Runner: pipeline.NewRunner(pipeline.RunnerConfig{
			Name:        "forecast",
			WorkerCount: max(cfg.Forecast.WorkerCount, 1),
		}),
	}
}
