package service

import (
	"context"
	"errors"
	"strings"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/retry"
)

// ResolveFestivals exposes the resolver on its own, e.g. for calendar previews.
func (s *ForecastService) ResolveFestivals(ctx context.Context, regions []string, dateRange domain.DateRange, categories []string) (festival.Resolution, error) {
	res, err := s.deps.Resolver.ResolveFor(ctx, regions, dateRange, categories)
	if err != nil {
		return res, err
	}
	if res.Degraded {
		s.deps.Metrics.Fallback("calendar")
	}
	return res, nil
}

// GetLatest returns the most recent stored forecast and risk assessment for a SKU.
func (s *ForecastService) GetLatest(ctx context.Context, userID, sku string) (*repository.StoredResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "is required"}
	}
	if strings.TrimSpace(sku) == "" {
		return nil, &domain.ValidationError{Field: "sku", Reason: "is required"}
	}
	if s.deps.Results == nil {
		return nil, domain.Unavailable("result store", domain.ErrStoreUnavailable, errors.New("not configured"))
	}

	var out *repository.StoredResult
	err := retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
		got, err := s.deps.Results.GetLatest(ctx, userID, sku)
		if errors.Is(err, domain.ErrNotFound) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.Unavailable("result store", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

// RecordInventory stores current stock levels used when a batch item carries none.
func (s *ForecastService) RecordInventory(ctx context.Context, userID string, snapshots []domain.InventorySnapshot) error {
	if strings.TrimSpace(userID) == "" {
		return &domain.ValidationError{Field: "userId", Reason: "is required"}
	}
	if s.deps.Inventory == nil {
		return domain.Unavailable("inventory store", domain.ErrStoreUnavailable, errors.New("not configured"))
	}
	for _, snap := range snapshots {
		if strings.TrimSpace(snap.SKU) == "" {
			return &domain.ValidationError{Field: "sku", Reason: "is required"}
		}
		if snap.CurrentStock < 0 {
			return &domain.ValidationError{Field: "currentStock", Reason: "must not be negative"}
		}
	}

	for _, snap := range snapshots {
		snap.UserID = userID
		err := retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
			return s.deps.Inventory.UpsertSnapshot(ctx, snap)
		})
		if err != nil {
			return domain.Unavailable("inventory store", domain.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// RecordSales appends daily sales observations to the history store.
func (s *ForecastService) RecordSales(ctx context.Context, userID string, observations []domain.SalesObservation) error {
	if strings.TrimSpace(userID) == "" {
		return &domain.ValidationError{Field: "userId", Reason: "is required"}
	}
	if s.deps.History == nil {
		return domain.Unavailable("sales history store", domain.ErrStoreUnavailable, errors.New("not configured"))
	}
	seen := make(map[string]bool, len(observations))
	days := make([]domain.SalesObservation, len(observations))
	for i, o := range observations {
		if strings.TrimSpace(o.SKU) == "" {
			return &domain.ValidationError{Field: "sku", Reason: "is required"}
		}
		if o.Date.IsZero() {
			return &domain.ValidationError{Field: "date", Reason: "is required"}
		}
		if o.QuantitySold < 0 {
			return &domain.ValidationError{Field: "quantitySold", Reason: "must not be negative"}
		}
		k := domain.DateKey(o.Date) + "|" + strings.ToLower(o.SKU)
		if seen[k] {
			return &domain.ValidationError{Field: "history", Reason: "duplicate observation for " + o.SKU + " on " + domain.DateKey(o.Date)}
		}
		seen[k] = true
		o.Date = domain.DayOf(o.Date)
		days[i] = o
	}

	err := retry.Do(ctx, s.cfg.StoreRetry, func(ctx context.Context) error {
		return s.deps.History.RecordSales(ctx, userID, days)
	})
	if err != nil {
		return domain.Unavailable("sales history store", domain.ErrStoreUnavailable, err)
	}
	return nil
}
