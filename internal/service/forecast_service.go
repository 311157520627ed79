package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/forecast"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/metrics"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/quality"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/recommend"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/risk"
)

// Config holds request defaults and limits
type Config struct {
	MinHorizonDays      int
	MaxHorizonDays      int
	DefaultLeadTimeDays int
	DefaultSafetyDays   int
	HistoryWindowDays   int
	MaxItems            int
	StoreRetry          retry.Policy
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinHorizonDays:      7,
		MaxHorizonDays:      14,
		DefaultLeadTimeDays: 7,
		DefaultSafetyDays:   3,
		HistoryWindowDays:   90,
		MaxItems:            500,
		StoreRetry:          retry.DefaultPolicy(),
	}
}

// Dependencies wires the core components and optional stores. Nil stores are skipped.
type Dependencies struct {
	Resolver   *festival.Resolver
	Scorer     *quality.Scorer
	Forecaster *forecast.Forecaster
	Assessor   *risk.Assessor
	Engine     *recommend.Engine
	Runner     *pipeline.Runner

	History   repository.SalesHistoryStore
	Inventory repository.InventorySnapshotStore
	Results   repository.ResultStore
	Runs      repository.RunRecorder
	Metrics   *metrics.Recorder
}

type ForecastService struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

func NewForecastService(cfg Config, deps Dependencies) *ForecastService {
	if deps.Resolver == nil {
		deps.Resolver = festival.NewResolver(nil, festival.DefaultResolverConfig())
	}
	if deps.Scorer == nil {
		deps.Scorer = quality.NewScorer(quality.DefaultConfig())
	}
	if deps.Forecaster == nil {
		deps.Forecaster = forecast.NewForecaster(nil, nil, forecast.DefaultConfig())
	}
	if deps.Assessor == nil {
		deps.Assessor = risk.NewAssessor(risk.DefaultConfig())
	}
	if deps.Engine == nil {
		deps.Engine = recommend.NewEngine(recommend.DefaultConfig())
	}
	if deps.Runner == nil {
		deps.Runner = pipeline.NewRunner(pipeline.DefaultRunnerConfig("forecast"))
	}
	return &ForecastService{cfg: cfg, deps: deps, now: time.Now}
}

// batch carries the request-wide values every item shares
type batch struct {
	requestID    string
	userID       string
	businessType string
	region       string
	start        time.Time
	horizon      int
	leadTime     int
	safety       int
	estimates    []domain.InventoryEstimate
	calendar     festival.Resolution
}

// RunBatch forecasts every item independently and reports a status per SKU. Only a malformed
// request as a whole returns an error.
func (s *ForecastService) RunBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	started := s.now()

	// 1. Validate the request envelope
	b, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("request_id", b.requestID).Str("user_id", b.userID).Logger()

	// 2. Resolve festival multipliers once for every category in the batch
	if cats := categories(req.Items); len(cats) > 0 {
		b.calendar, err = s.deps.Resolver.ResolveFor(ctx, []string{b.region},
			domain.NewDateRange(b.start, b.horizon), cats)
		if err != nil {
			return nil, err
		}
	}
	if b.calendar.Degraded {
		s.deps.Metrics.Fallback("calendar")
	}

	// 3. Fan out one task per SKU
	tasks := make([]pipeline.Task[*ItemStatus], len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		tasks[i] = pipeline.Task[*ItemStatus]{
			Key: item.SKU,
			Fn: func(ctx context.Context) (*ItemStatus, error) {
				return s.runItem(ctx, b, item)
			},
		}
	}
	outcomes, run := pipeline.Run(ctx, s.deps.Runner, b.requestID, tasks)

	// 4. Reduce outcomes into per-item statuses
	resp := &BatchResponse{
		RequestID:   b.requestID,
		Status:      run.Status,
		Calendar:    CalendarStatus{Degraded: b.calendar.Degraded, Events: eventNames(b.calendar.Events)},
		Items:       make([]ItemStatus, len(outcomes)),
		Completed:   run.Completed,
		Failed:      run.Failed,
		GeneratedAt: s.now().UTC(),
	}
	for i, o := range outcomes {
		if o.Status == pipeline.JobCompleted && o.Value != nil {
			resp.Items[i] = *o.Value
			s.recordSuccess(o.Value)
			continue
		}
		resp.Items[i] = failedItem(req.Items[i], o.Err)
		s.deps.Metrics.SKUFailure(resp.Items[i].ErrorKind)
		logger.Warn().Err(o.Err).Str("sku", o.Key).Str("kind", resp.Items[i].ErrorKind).Msg("sku failed")
	}

	// 5. Audit trail
	if s.deps.Runs != nil {
		if err := s.deps.Runs.RecordRun(ctx, b.userID, run); err != nil {
			logger.Warn().Err(err).Msg("could not record batch run")
		}
	}

	elapsed := s.now().Sub(started)
	resp.DurationMs = elapsed.Milliseconds()
	s.deps.Metrics.BatchDuration(elapsed)
	logger.Info().Str("status", string(resp.Status)).Int("completed", resp.Completed).
		Int("failed", resp.Failed).Dur("duration", elapsed).Msg("forecast batch finished")
	return resp, nil
}

func (s *ForecastService) prepare(req BatchRequest) (batch, error) {
	b := batch{
		requestID:    strings.TrimSpace(req.RequestID),
		userID:       strings.TrimSpace(req.UserID),
		businessType: strings.TrimSpace(req.BusinessType),
		region:       strings.TrimSpace(req.Region),
		horizon:      req.HorizonDays,
	}

	switch {
	case b.userID == "":
		return b, &domain.ValidationError{Field: "userId", Reason: "is required"}
	case b.region == "":
		return b, &domain.ValidationError{Field: "region", Reason: "is required"}
	case len(req.Items) == 0:
		return b, &domain.ValidationError{Field: "items", Reason: "at least one item is required"}
	case s.cfg.MaxItems > 0 && len(req.Items) > s.cfg.MaxItems:
		return b, &domain.ValidationError{Field: "items", Reason: fmt.Sprintf("at most %d items per request", s.cfg.MaxItems)}
	case b.horizon < s.cfg.MinHorizonDays || b.horizon > s.cfg.MaxHorizonDays:
		return b, &domain.ValidationError{
			Field:  "horizonDays",
			Reason: fmt.Sprintf("must be between %d and %d", s.cfg.MinHorizonDays, s.cfg.MaxHorizonDays),
		}
	}

	if req.StartDate == "" {
		b.start = domain.DayOf(s.now())
	} else {
		start, err := domain.ParseDate(req.StartDate)
		if err != nil {
			return b, &domain.ValidationError{Field: "startDate", Reason: "must be YYYY-MM-DD"}
		}
		b.start = start
	}

	tolerance, ok := domain.ParseRiskTolerance(req.RiskTolerance)
	if !ok {
		return b, &domain.ValidationError{Field: "riskTolerance", Reason: "must be conservative, moderate or aggressive"}
	}

	b.leadTime = req.LeadTimeDays
	if b.leadTime == 0 {
		b.leadTime = s.cfg.DefaultLeadTimeDays
	}
	if b.leadTime < 1 {
		return b, &domain.ValidationError{Field: "leadTimeDays", Reason: "must be at least 1"}
	}
	safety := s.cfg.DefaultSafetyDays
	if req.SafetyStockDays != nil {
		safety = *req.SafetyStockDays
	}
	if safety < 0 {
		return b, &domain.ValidationError{Field: "safetyStockDays", Reason: "must not be negative"}
	}
	b.safety = int(math.Round(float64(safety) * tolerance.SafetyStockFactor()))

	b.estimates = make([]domain.InventoryEstimate, len(req.Estimates))
	for i, e := range req.Estimates {
		if e.CurrentStock < 0 || e.AverageDailySales < 0 {
			return b, &domain.ValidationError{Field: "estimates", Reason: fmt.Sprintf("%s: values must not be negative", e.Category)}
		}
		tag, ok := domain.ParseConfidenceTag(string(e.ConfidenceTag))
		if !ok {
			return b, &domain.ValidationError{Field: "estimates", Reason: fmt.Sprintf("%s: unknown confidence %q", e.Category, e.ConfidenceTag)}
		}
		e.ConfidenceTag = tag
		b.estimates[i] = e
	}

	if b.requestID == "" {
		b.requestID = uuid.NewString()
	}
	return b, nil
}

// runItem is the end-to-end unit of work for one SKU.
func (s *ForecastService) runItem(ctx context.Context, b batch, item BatchItem) (*ItemStatus, error) {
	if strings.TrimSpace(item.SKU) == "" {
		return nil, &domain.ValidationError{Field: "sku", Reason: "is required"}
	}
	var extra []domain.Warning

	// 1. History and data quality
	history, err := s.history(ctx, b, item)
	if err != nil {
		log.Warn().Err(err).Str("sku", item.SKU).Msg("sales history unavailable")
		s.deps.Metrics.Fallback("history store")
		extra = append(extra, domain.WarnHistoryUnavailable)
	}
	var estimates []domain.InventoryEstimate
	if e := forecast.EstimateFor(b.estimates, item.Category); e != nil {
		estimates = []domain.InventoryEstimate{*e}
	}
	decision := s.deps.Scorer.Score(history, estimates, b.start)

	// 2. Forecast
	fc, err := s.deps.Forecaster.Forecast(ctx, forecast.Request{
		SKU:              item.SKU,
		Category:         item.Category,
		BusinessType:     b.businessType,
		Region:           b.region,
		Start:            b.start,
		HorizonDays:      b.horizon,
		Multipliers:      b.calendar.Multipliers,
		CalendarDegraded: b.calendar.Degraded,
		History:          history,
		Estimates:        b.estimates,
		Decision:         decision,
	})
	if err != nil {
		return nil, err
	}

	// 3. Risk and recommendation
	stock, err := s.currentStock(ctx, b, item)
	if err != nil {
		return nil, err
	}
	lead := b.leadTime
	if item.LeadTimeDays > 0 {
		lead = item.LeadTimeDays
	}
	ra, err := s.deps.Assessor.Assess(fc, stock, lead, b.safety)
	if err != nil {
		return nil, err
	}
	ra.Recommendation = s.deps.Engine.Recommend(ra)

	status := &ItemStatus{
		SKU:      item.SKU,
		Category: item.Category,
		Status:   ItemOK,
		Forecast: fc,
		Risk:     ra,
		Warnings: append(append([]domain.Warning{}, fc.Warnings...), extra...),
	}

	// 4. Persist; a failed write keeps the computed result
	if s.deps.Results != nil {
		key := domain.ResultKey{UserID: b.userID, SKU: item.SKU, RequestID: b.requestID}
		err := retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
			return s.deps.Results.Write(ctx, key, fc, ra)
		})
		if err != nil {
			log.Warn().Err(err).Str("sku", item.SKU).Str("request_id", b.requestID).Msg("result not persisted")
			s.deps.Metrics.Fallback("result store")
			status.Warnings = append(status.Warnings, domain.WarnResultNotPersisted)
		}
	}
	return status, nil
}

// history prefers request data and falls back to the store over the scoring window.
func (s *ForecastService) history(ctx context.Context, b batch, item BatchItem) ([]domain.SalesObservation, error) {
	if len(item.History) > 0 {
		out := make([]domain.SalesObservation, 0, len(item.History))
		for _, o := range item.History {
			if o.SKU == "" || strings.EqualFold(o.SKU, item.SKU) {
				o.SKU = item.SKU
				out = append(out, o)
			}
		}
		return out, nil
	}
	if s.deps.History == nil {
		return nil, nil
	}

	from := b.start.AddDate(0, 0, -s.cfg.HistoryWindowDays)
	var history []domain.SalesObservation
	err := retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
		h, err := s.deps.History.GetHistory(ctx, b.userID, item.SKU, from, b.start)
		if err != nil {
			return err
		}
		history = h
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("sales history store", domain.ErrStoreUnavailable, err)
	}
	return history, nil
}

// currentStock resolves stock from the item, the snapshot store, then the category estimate.
func (s *ForecastService) currentStock(ctx context.Context, b batch, item BatchItem) (float64, error) {
	if item.CurrentStock != nil {
		return *item.CurrentStock, nil
	}

	var storeErr error
	if s.deps.Inventory != nil {
		var snap *domain.InventorySnapshot
		storeErr = retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
			got, err := s.deps.Inventory.GetSnapshot(ctx, b.userID, item.SKU)
			if errors.Is(err, domain.ErrNotFound) {
				return retry.Permanent(err)
			}
			if err != nil {
				return err
			}
			snap = got
			return nil
		})
		if storeErr == nil {
			return snap.CurrentStock, nil
		}
	}

	if e := forecast.EstimateFor(b.estimates, item.Category); e != nil {
		return e.CurrentStock, nil
	}
	if storeErr != nil && !errors.Is(storeErr, domain.ErrNotFound) {
		return 0, domain.Unavailable("inventory store", domain.ErrStoreUnavailable, storeErr)
	}
	return 0, &domain.ValidationError{Field: "currentStock", Reason: "no stock level supplied, stored or estimated"}
}

func (s *ForecastService) recordSuccess(st *ItemStatus) {
	s.deps.Metrics.Forecast(string(st.Forecast.Methodology))
	for _, w := range st.Forecast.Warnings {
		if w == domain.WarnProviderFallback {
			s.deps.Metrics.Fallback("forecast provider")
		}
	}
	for _, a := range st.Risk.Alerts {
		s.deps.Metrics.Alert(string(a.Type), string(a.Severity))
	}
}

func failedItem(item BatchItem, err error) ItemStatus {
	st := ItemStatus{
		SKU:       item.SKU,
		Category:  item.Category,
		Status:    ItemFailed,
		ErrorKind: domain.ErrorKind(err),
	}
	if err != nil {
		st.Error = err.Error()
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		st.Field = ve.Field
	}
	return st
}

func categories(items []BatchItem) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		c := strings.ToLower(strings.TrimSpace(it.Category))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func eventNames(events []domain.FestivalEvent) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}
