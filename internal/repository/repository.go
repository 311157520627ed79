// Package repository declares the stores the forecasting service reads from and writes to.
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
)

// CalendarStore is the festival calendar reference data
type CalendarStore interface {
	festival.CalendarLookup
	UpsertEvents(ctx context.Context, events []domain.FestivalEvent) error
}

type InventorySnapshotStore interface {
	// GetSnapshot returns domain.ErrNotFound when the SKU has no stored stock level.
	GetSnapshot(ctx context.Context, userID, sku string) (*domain.InventorySnapshot, error)
	UpsertSnapshot(ctx context.Context, snap domain.InventorySnapshot) error
}

type SalesHistoryStore interface {
	// GetHistory returns observations with from <= date < to, oldest first.
	GetHistory(ctx context.Context, userID, sku string, from, to time.Time) ([]domain.SalesObservation, error)
	RecordSales(ctx context.Context, userID string, observations []domain.SalesObservation) error
}

// StoredResult is a persisted forecast and the risk assessment derived from it
type StoredResult struct {
	Key       domain.ResultKey       `json:"key"`
	Forecast  *domain.ForecastResult `json:"forecast"`
	Risk      *domain.RiskAssessment `json:"risk"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ResultStore persists results. Writes are idempotent on the key.
type ResultStore interface {
	Write(ctx context.Context, key domain.ResultKey, forecast *domain.ForecastResult, risk *domain.RiskAssessment) error
	// GetLatest returns domain.ErrNotFound when nothing was stored for the SKU.
	GetLatest(ctx context.Context, userID, sku string) (*StoredResult, error)
}

// RunRecorder keeps an audit trail of batch runs
type RunRecorder interface {
	RecordRun(ctx context.Context, userID string, run pipeline.BatchRun) error
}
