package recommend

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/risk"
)

var start = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func forecast(days int, demand func(i int) float64) *domain.ForecastResult {
	preds := make([]domain.DailyPrediction, days)
	for i := range preds {
		d := demand(i)
		preds[i] = domain.DailyPrediction{
			Date: start.AddDate(0, 0, i), DemandForecast: d,
			LowerBound: d * 0.8, UpperBound: d * 1.2, FestivalMultiplier: 1,
		}
	}
	return &domain.ForecastResult{SKU: "S1", Category: "grocery", Predictions: preds, Confidence: 0.72, Methodology: domain.MethodologyML}
}

func flat(v float64) func(int) float64 { return func(int) float64 { return v } }

func assess(t *testing.T, f *domain.ForecastResult, stock float64, lead, safety int) *domain.RiskAssessment {
	t.Helper()
	ra, err := risk.NewAssessor(risk.DefaultConfig()).Assess(f, stock, lead, safety)
	require.NoError(t, err)
	return ra
}

func TestRecommend_Reorder(t *testing.T) {
	ra := assess(t, forecast(14, flat(10)), 50, 7, 3)
	rec := NewEngine(Config{PackSize: 12}).Recommend(ra)

	assert.Equal(t, domain.ActionReorder, rec.Action)
	// 100 units needed over lead + safety, 50 on hand, rounded up to a pack of 12
	assert.Equal(t, 60.0, rec.SuggestedQuantity)
	assert.Equal(t, domain.LevelMedium, rec.Urgency)
	assert.Equal(t, 0.72, rec.Confidence)
	require.Len(t, rec.Reasoning, 7)
	assert.Equal(t, "forecast demand over 7 day lead time: 70.0 units (14 day horizon: 140.0 units)", rec.Reasoning[0])
	assert.Equal(t, "current stock: 50.0 units", rec.Reasoning[1])
	assert.Equal(t, "lead time: 7 days, safety stock: 3 days", rec.Reasoning[2])
}

func TestRecommend_Urgency(t *testing.T) {
	e := NewEngine(DefaultConfig())

	ra := assess(t, forecast(14, flat(10)), 0, 7, 3)
	assert.Equal(t, domain.LevelHigh, e.Recommend(ra).Urgency)

	ra = assess(t, forecast(14, flat(10)), 30, 7, 3) // runs out on day 2
	assert.Equal(t, domain.LevelHigh, e.Recommend(ra).Urgency)

	ra = assess(t, forecast(14, flat(10)), 50, 7, 3) // day 4
	assert.Equal(t, domain.LevelMedium, e.Recommend(ra).Urgency)

	ra = assess(t, forecast(14, flat(10)), 100, 7, 3) // day 9
	assert.Equal(t, domain.LevelLow, e.Recommend(ra).Urgency)

	ra = assess(t, forecast(14, flat(10)), 1000, 7, 3)
	assert.Equal(t, domain.LevelLow, e.Recommend(ra).Urgency)
}

func TestRecommend_Reduce(t *testing.T) {
	ra := assess(t, forecast(14, flat(10)), 500, 7, 3)
	rec := NewEngine(Config{PackSize: 25}).Recommend(ra)

	assert.Equal(t, domain.ActionReduce, rec.Action)
	assert.Equal(t, 275.0, rec.SuggestedQuantity)
	assert.Equal(t, "reduce stock by 275 units of excess", rec.Reasoning[5])
}

func TestRecommend_Maintain(t *testing.T) {
	ra := assess(t, forecast(14, flat(10)), 160, 7, 3)
	rec := NewEngine(DefaultConfig()).Recommend(ra)

	assert.Equal(t, domain.ActionMaintain, rec.Action)
	assert.Zero(t, rec.SuggestedQuantity)
	assert.Equal(t, "maintain: no risk at medium severity or above", rec.Reasoning[5])
}

func TestRecommend_NoStockNoDemandIsNotUrgent(t *testing.T) {
	ra := assess(t, forecast(7, flat(0)), 0, 3, 0)
	rec := NewEngine(DefaultConfig()).Recommend(ra)

	assert.Equal(t, domain.ActionMaintain, rec.Action)
	assert.Equal(t, domain.LevelLow, rec.Urgency)
	assert.Zero(t, rec.SuggestedQuantity)
}

// A spike early in the horizon can push lead-time stockout risk up while total stock still
// exceeds horizon demand; the engine must not reorder in that case.
func TestRecommend_NeverReordersWhenOverstocked(t *testing.T) {
	spike := func(i int) float64 {
		if i == 0 {
			return 200
		}
		return 1
	}
	f := forecast(14, spike)
	f.Predictions[0].UpperBound = 600
	ra := assess(t, f, 300, 1, 0)
	require.True(t, ra.OverstockRisk.Overstocked)
	require.True(t, ra.StockoutRisk.Severity.AtLeast(domain.LevelMedium))

	rec := NewEngine(DefaultConfig()).Recommend(ra)
	assert.Equal(t, domain.ActionMaintain, rec.Action)
	assert.Contains(t, rec.Reasoning[5], "reorder withheld")
}

func TestRecommend_RandomOverstockNeverReorders(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	e := NewEngine(DefaultConfig())
	cfg := risk.DefaultConfig()

	for i := 0; i < 300; i++ {
		days := 7 + rng.Intn(8)
		f := forecast(days, func(int) float64 { return rng.Float64() * 40 })
		horizonDemand := f.TotalDemand(0)
		stock := horizonDemand*(1+cfg.ExcessThreshold) + 1 + rng.Float64()*200

		ra := assess(t, f, stock, 1+rng.Intn(14), rng.Intn(7))
		rec := e.Recommend(ra)
		assert.NotEqual(t, domain.ActionReorder, rec.Action)
		assert.GreaterOrEqual(t, rec.SuggestedQuantity, 0.0)
		assert.GreaterOrEqual(t, rec.Confidence, 0.0)
		assert.LessOrEqual(t, rec.Confidence, 1.0)
	}
}
