package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

const providerName = "forecast provider"

// HTTPProviderConfig configures the external model client
type HTTPProviderConfig struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerTimeout    time.Duration // how long the breaker stays open
}

// HTTPProvider posts history to an external forecasting model and reads back a base curve.
type HTTPProvider struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

type providerHistoryPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

type providerRequestBody struct {
	SKU          string                 `json:"sku"`
	Category     string                 `json:"category"`
	BusinessType string                 `json:"businessType,omitempty"`
	Region       string                 `json:"region,omitempty"`
	Start        string                 `json:"start"`
	HorizonDays  int                    `json:"horizonDays"`
	History      []providerHistoryPoint `json:"history"`
}

type providerResponseBody struct {
	Curve []BasePoint `json:"curve"`
}

// NewHTTPProvider creates an HTTPProvider. The breaker opens after three consecutive failures.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	st := gobreaker.Settings{Name: providerName}
	st.Interval = 60 * time.Second
	st.Timeout = cfg.BreakerTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	return &HTTPProvider{
		url:     strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}
}

// State is the breaker state reported on /health
func (p *HTTPProvider) State() string {
	return p.breaker.State().String()
}

// Predict implements Provider
func (p *HTTPProvider) Predict(ctx context.Context, req ProviderRequest) (BaseCurve, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, domain.Unavailable(providerName, domain.ErrForecastProvider, err)
	}

	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.call(ctx, req)
	})
	if err != nil {
		return nil, domain.Unavailable(providerName, domain.ErrForecastProvider, err)
	}
	curve := out.(BaseCurve)
	if err := checkCurve(curve, req.HorizonDays); err != nil {
		return nil, domain.Unavailable(providerName, domain.ErrForecastProvider, err)
	}
	return curve, nil
}

func (p *HTTPProvider) call(ctx context.Context, req ProviderRequest) (BaseCurve, error) {
	body := providerRequestBody{
		SKU:          req.SKU,
		Category:     req.Category,
		BusinessType: req.BusinessType,
		Region:       req.Region,
		Start:        domain.DateKey(req.Start),
		HorizonDays:  req.HorizonDays,
	}
	for _, d := range DailySeries(req.History, req.SKU, time.Time{}, domain.DayOf(req.Start)) {
		body.History = append(body.History, providerHistoryPoint{Date: domain.DateKey(d.Date), Quantity: d.Quantity})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded providerResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Curve) == 0 {
		return nil, errors.New("empty curve")
	}
	return BaseCurve(decoded.Curve), nil
}
