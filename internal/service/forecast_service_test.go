package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/forecast"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/metrics"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
)

var start = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func fastRetry() retry.Policy {
	return retry.Policy{Attempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Timeout: time.Second}
}

type memResults struct {
	mu     sync.Mutex
	writes map[domain.ResultKey]*domain.RiskAssessment
	err    error
}

func (m *memResults) Write(ctx context.Context, key domain.ResultKey, f *domain.ForecastResult, r *domain.RiskAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.writes == nil {
		m.writes = map[domain.ResultKey]*domain.RiskAssessment{}
	}
	m.writes[key] = r
	return nil
}

func (m *memResults) GetLatest(ctx context.Context, userID, sku string) (*repository.StoredResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for k, r := range m.writes {
		if k.UserID == userID && k.SKU == sku {
			return &repository.StoredResult{Key: k, Risk: r}, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memRuns struct {
	mu   sync.Mutex
	runs []pipeline.BatchRun
}

func (m *memRuns) RecordRun(ctx context.Context, userID string, run pipeline.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type memInventory struct {
	mu    sync.Mutex
	stock map[string]float64
	err   error
}

func (m *memInventory) GetSnapshot(ctx context.Context, userID, sku string) (*domain.InventorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.stock[userID+"/"+sku]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.InventorySnapshot{UserID: userID, SKU: sku, CurrentStock: v}, nil
}

func (m *memInventory) UpsertSnapshot(ctx context.Context, snap domain.InventorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.stock == nil {
		m.stock = map[string]float64{}
	}
	m.stock[snap.UserID+"/"+snap.SKU] = snap.CurrentStock
	return nil
}

type memHistory struct {
	mu       sync.Mutex
	bySKU    map[string][]domain.SalesObservation
	err      error
	recorded int
}

func (m *memHistory) GetHistory(ctx context.Context, userID, sku string, from, to time.Time) ([]domain.SalesObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.bySKU[sku], nil
}

func (m *memHistory) RecordSales(ctx context.Context, userID string, obs []domain.SalesObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recorded += len(obs)
	return nil
}

type failingCalendar struct{}

func (failingCalendar) Lookup(ctx context.Context, regions []string, r domain.DateRange) ([]domain.FestivalEvent, error) {
	return nil, errors.New("calendar down")
}

func constantHistory(sku, category string, days int, qty float64) []domain.SalesObservation {
	out := make([]domain.SalesObservation, 0, days)
	for i := days; i >= 1; i-- {
		out = append(out, domain.SalesObservation{Date: start.AddDate(0, 0, -i), SKU: sku, Category: category, QuantitySold: qty})
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, lookup festival.CalendarLookup, deps Dependencies) *ForecastService {
	t.Helper()
	rc := festival.DefaultResolverConfig()
	rc.Retry = fastRetry()
	deps.Resolver = festival.NewResolver(lookup, rc)

	fc := forecast.DefaultConfig()
	fc.ProviderRetry = fastRetry()
	deps.Forecaster = forecast.NewForecaster(forecast.NewHistoricalProvider(56), nil, fc)
	deps.Runner = pipeline.NewRunner(pipeline.RunnerConfig{Name: "forecast", WorkerCount: 3})

	cfg := DefaultConfig()
	cfg.StoreRetry = fastRetry()
	return NewForecastService(cfg, deps)
}

func baseRequest(items ...BatchItem) BatchRequest {
	return BatchRequest{
		UserID:       "u1",
		BusinessType: "grocery",
		Region:       "north",
		StartDate:    "2026-10-19",
		HorizonDays:  14,
		Items:        items,
	}
}

func TestRunBatch_IsolatesFailuresPerSKU(t *testing.T) {
	results := &memResults{}
	runs := &memRuns{}
	rec, err := metrics.New()
	require.NoError(t, err)
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{Results: results, Runs: runs, Metrics: rec})

	req := baseRequest(
		BatchItem{SKU: "RICE-5KG", Category: "grocery", CurrentStock: ptr(20.0), History: constantHistory("RICE-5KG", "grocery", 90, 10)},
		BatchItem{SKU: "KURTA-M", Category: "apparel"},
		BatchItem{SKU: "", Category: "grocery", CurrentStock: ptr(1.0)},
		BatchItem{SKU: "DAL-1KG", Category: "grocery"},
	)
	req.Estimates = []domain.InventoryEstimate{{Category: "Apparel", CurrentStock: 100, AverageDailySales: 8, ConfidenceTag: "High"}}

	resp, err := svc.RunBatch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, pipeline.StatusPartial, resp.Status)
	assert.Equal(t, 2, resp.Completed)
	assert.Equal(t, 2, resp.Failed)
	assert.False(t, resp.Calendar.Degraded)

	rice := resp.Items[0]
	require.Equal(t, ItemOK, rice.Status)
	assert.Equal(t, domain.MethodologyML, rice.Forecast.Methodology)
	assert.InDelta(t, 0.85, rice.Forecast.Confidence, 1e-9)
	assert.InDelta(t, 10, rice.Forecast.Predictions[0].DemandForecast, 1e-9)
	assert.Equal(t, domain.ActionReorder, rice.Risk.Recommendation.Action)
	assert.InDelta(t, 80, rice.Risk.Recommendation.SuggestedQuantity, 1e-9)

	kurta := resp.Items[1]
	require.Equal(t, ItemOK, kurta.Status)
	assert.Equal(t, domain.MethodologyPattern, kurta.Forecast.Methodology)
	assert.Equal(t, 100.0, kurta.Risk.CurrentStock)
	assert.Contains(t, kurta.Warnings, domain.WarnInsufficientHistory)

	assert.Equal(t, ItemFailed, resp.Items[2].Status)
	assert.Equal(t, "validation", resp.Items[2].ErrorKind)
	assert.Equal(t, "sku", resp.Items[2].Field)

	assert.Equal(t, ItemFailed, resp.Items[3].Status)
	assert.Equal(t, "currentStock", resp.Items[3].Field)

	assert.Len(t, results.writes, 2)
	_, ok := results.writes[domain.ResultKey{UserID: "u1", SKU: "RICE-5KG", RequestID: resp.RequestID}]
	assert.True(t, ok)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, resp.RequestID, runs.runs[0].ID)
}

func TestRunBatch_GradesEachSKUOnItsOwnCategoryEstimate(t *testing.T) {
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{})
	item := BatchItem{SKU: "ATTA-10KG", Category: "grocery", CurrentStock: ptr(50.0)}

	alone, err := svc.RunBatch(context.Background(), baseRequest(item))
	require.NoError(t, err)

	mixed := baseRequest(item)
	mixed.Estimates = []domain.InventoryEstimate{{Category: "apparel", CurrentStock: 100, AverageDailySales: 8, ConfidenceTag: "high"}}
	withOther, err := svc.RunBatch(context.Background(), mixed)
	require.NoError(t, err)

	a, b := alone.Items[0], withOther.Items[0]
	require.Equal(t, ItemOK, a.Status)
	require.Equal(t, ItemOK, b.Status)
	assert.Contains(t, a.Warnings, domain.WarnNoEstimates)
	assert.Contains(t, b.Warnings, domain.WarnNoEstimates)
	assert.InDelta(t, a.Forecast.Confidence, b.Forecast.Confidence, 1e-9)
}

func TestRunBatch_ResultStoreFailureKeepsResult(t *testing.T) {
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{Results: &memResults{err: errors.New("db down")}})

	resp, err := svc.RunBatch(context.Background(), baseRequest(
		BatchItem{SKU: "RICE-5KG", Category: "grocery", CurrentStock: ptr(80.0), History: constantHistory("RICE-5KG", "grocery", 90, 10)},
	))
	require.NoError(t, err)
	item := resp.Items[0]
	assert.Equal(t, ItemOK, item.Status)
	require.NotNil(t, item.Forecast)
	require.NotNil(t, item.Risk)
	assert.Contains(t, item.Warnings, domain.WarnResultNotPersisted)
	assert.Equal(t, pipeline.StatusCompleted, resp.Status)
}

func TestRunBatch_CalendarOutageDegrades(t *testing.T) {
	svc := newService(t, failingCalendar{}, Dependencies{})

	resp, err := svc.RunBatch(context.Background(), baseRequest(
		BatchItem{SKU: "RICE-5KG", Category: "grocery", CurrentStock: ptr(80.0), History: constantHistory("RICE-5KG", "grocery", 90, 10)},
	))
	require.NoError(t, err)
	assert.True(t, resp.Calendar.Degraded)

	item := resp.Items[0]
	require.Equal(t, ItemOK, item.Status)
	assert.Contains(t, item.Warnings, domain.WarnCalendarDegraded)
	assert.InDelta(t, 0.85*0.9, item.Forecast.Confidence, 1e-9)
	for _, p := range item.Forecast.Predictions {
		assert.Equal(t, 1.0, p.FestivalMultiplier)
	}
}

func TestRunBatch_AppliesFestivalUplift(t *testing.T) {
	diwali := domain.FestivalEvent{
		FestivalID: "diwali-2026", Name: "Diwali", StartDate: start.AddDate(0, 0, 2),
		Regions: []string{"all"}, DemandMultipliers: map[string]float64{"grocery": 2}, DurationDays: 3,
	}
	svc := newService(t, festival.NewSnapshot("test", []domain.FestivalEvent{diwali}), Dependencies{})

	resp, err := svc.RunBatch(context.Background(), baseRequest(
		BatchItem{SKU: "RICE-5KG", Category: "Grocery", CurrentStock: ptr(500.0), History: constantHistory("RICE-5KG", "grocery", 90, 10)},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"Diwali"}, resp.Calendar.Events)

	preds := resp.Items[0].Forecast.Predictions
	assert.Equal(t, 1.0, preds[1].FestivalMultiplier)
	assert.Equal(t, 2.0, preds[2].FestivalMultiplier)
	assert.InDelta(t, 20, preds[2].DemandForecast, 1e-9)
	assert.Equal(t, 1.0, preds[5].FestivalMultiplier)
}

func TestRunBatch_ReadsStores(t *testing.T) {
	history := &memHistory{bySKU: map[string][]domain.SalesObservation{
		"RICE-5KG": constantHistory("RICE-5KG", "grocery", 90, 10),
	}}
	inventory := &memInventory{stock: map[string]float64{"u1/RICE-5KG": 35}}
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{History: history, Inventory: inventory})

	resp, err := svc.RunBatch(context.Background(), baseRequest(BatchItem{SKU: "RICE-5KG", Category: "grocery"}))
	require.NoError(t, err)
	item := resp.Items[0]
	require.Equal(t, ItemOK, item.Status)
	assert.Equal(t, domain.MethodologyML, item.Forecast.Methodology)
	assert.Equal(t, 35.0, item.Risk.CurrentStock)
}

func TestRunBatch_HistoryStoreOutageFallsBackToPattern(t *testing.T) {
	history := &memHistory{err: errors.New("timeout")}
	inventory := &memInventory{err: errors.New("timeout")}
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{History: history, Inventory: inventory})

	req := baseRequest(BatchItem{SKU: "RICE-5KG", Category: "grocery"}, BatchItem{SKU: "DAL-1KG", Category: "pulses"})
	req.Estimates = []domain.InventoryEstimate{{Category: "grocery", CurrentStock: 60, AverageDailySales: 12, ConfidenceTag: "medium"}}

	resp, err := svc.RunBatch(context.Background(), req)
	require.NoError(t, err)

	rice := resp.Items[0]
	require.Equal(t, ItemOK, rice.Status)
	assert.Equal(t, domain.MethodologyPattern, rice.Forecast.Methodology)
	assert.Contains(t, rice.Warnings, domain.WarnHistoryUnavailable)
	assert.Equal(t, 60.0, rice.Risk.CurrentStock)

	dal := resp.Items[1]
	assert.Equal(t, ItemFailed, dal.Status)
	assert.Equal(t, "collaborator", dal.ErrorKind)
}

func TestRunBatch_RiskToleranceScalesSafetyStock(t *testing.T) {
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{})
	item := BatchItem{SKU: "RICE-5KG", Category: "grocery", CurrentStock: ptr(80.0), History: constantHistory("RICE-5KG", "grocery", 90, 10)}

	for tolerance, want := range map[string]int{"conservative": 5, "moderate": 3, "aggressive": 2, "": 3} {
		req := baseRequest(item)
		req.RiskTolerance = tolerance
		resp, err := svc.RunBatch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Items[0].Risk.SafetyStockDays, tolerance)
	}
}

func TestRunBatch_RejectsMalformedRequests(t *testing.T) {
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{})
	item := BatchItem{SKU: "A", Category: "grocery", CurrentStock: ptr(1.0)}

	tests := []struct {
		name  string
		mod   func(r *BatchRequest)
		field string
	}{
		{"no user", func(r *BatchRequest) { r.UserID = " " }, "userId"},
		{"no region", func(r *BatchRequest) { r.Region = "" }, "region"},
		{"no items", func(r *BatchRequest) { r.Items = nil }, "items"},
		{"short horizon", func(r *BatchRequest) { r.HorizonDays = 6 }, "horizonDays"},
		{"long horizon", func(r *BatchRequest) { r.HorizonDays = 15 }, "horizonDays"},
		{"bad date", func(r *BatchRequest) { r.StartDate = "19/10/2026" }, "startDate"},
		{"bad tolerance", func(r *BatchRequest) { r.RiskTolerance = "yolo" }, "riskTolerance"},
		{"negative safety", func(r *BatchRequest) { r.SafetyStockDays = ptr(-1) }, "safetyStockDays"},
		{"negative lead", func(r *BatchRequest) { r.LeadTimeDays = -2 }, "leadTimeDays"},
		{"bad estimate tag", func(r *BatchRequest) {
			r.Estimates = []domain.InventoryEstimate{{Category: "grocery", ConfidenceTag: "certain"}}
		}, "estimates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(item)
			tt.mod(&req)
			_, err := svc.RunBatch(context.Background(), req)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRunBatch_KeepsCallerRequestID(t *testing.T) {
	results := &memResults{}
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{Results: results})
	req := baseRequest(BatchItem{SKU: "A", Category: "grocery", CurrentStock: ptr(5.0)})
	req.RequestID = "retry-42"

	for i := 0; i < 2; i++ {
		resp, err := svc.RunBatch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "retry-42", resp.RequestID)
	}
	assert.Len(t, results.writes, 1)
}

func TestGetLatest(t *testing.T) {
	results := &memResults{}
	svc := newService(t, festival.NewSnapshot("test", nil), Dependencies{Results: results})

	_, err := svc.GetLatest(context.Background(), "u1", "RICE-5KG")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.RunBatch(context.Background(), baseRequest(BatchItem{SKU: "RICE-5KG", Category: "grocery", CurrentStock: ptr(5.0)}))
	require.NoError(t, err)

	got, err := svc.GetLatest(context.Background(), "u1", "RICE-5KG")
	require.NoError(t, err)
	assert.Equal(t, "RICE-5KG", got.Key.SKU)

	_, err = svc.GetLatest(context.Background(), "u1", "")
	assert.Equal(t, "validation", domain.ErrorKind(err))

	results.err = errors.New("db down")
	_, err = svc.GetLatest(context.Background(), "u1", "RICE-5KG")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = newService(t, nil, Dependencies{}).GetLatest(context.Background(), "u1", "RICE-5KG")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestResolveFestivals(t *testing.T) {
	holi := domain.FestivalEvent{
		FestivalID: "holi", Name: "Holi", StartDate: start, Regions: []string{"north"},
		DemandMultipliers: map[string]float64{"colors": 3}, DurationDays: 1,
	}
	svc := newService(t, festival.NewSnapshot("test", []domain.FestivalEvent{holi}), Dependencies{})

	res, err := svc.ResolveFestivals(context.Background(), []string{"North"}, domain.NewDateRange(start, 3), []string{"colors"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, 3.0, res.Multipliers.At(start, "colors"))
	assert.Equal(t, 1.0, res.Multipliers.At(start.AddDate(0, 0, 1), "colors"))

	_, err = svc.ResolveFestivals(context.Background(), nil, domain.NewDateRange(start, 3), []string{"colors"})
	assert.Equal(t, "validation", domain.ErrorKind(err))
}

func TestRecordInventoryAndSales(t *testing.T) {
	inventory := &memInventory{}
	history := &memHistory{}
	svc := newService(t, nil, Dependencies{Inventory: inventory, History: history})
	ctx := context.Background()

	require.NoError(t, svc.RecordInventory(ctx, "u1", []domain.InventorySnapshot{{SKU: "A", CurrentStock: 4}}))
	assert.Equal(t, 4.0, inventory.stock["u1/A"])

	err := svc.RecordInventory(ctx, "u1", []domain.InventorySnapshot{{SKU: "A", CurrentStock: -1}})
	assert.Equal(t, "validation", domain.ErrorKind(err))

	obs := constantHistory("A", "grocery", 3, 2)
	require.NoError(t, svc.RecordSales(ctx, "u1", obs))
	assert.Equal(t, 3, history.recorded)

	err = svc.RecordSales(ctx, "u1", append(obs, obs[0]))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "history", ve.Field)

	history.err = errors.New("db down")
	assert.ErrorIs(t, svc.RecordSales(ctx, "u1", obs), domain.ErrStoreUnavailable)
}
