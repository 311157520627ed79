package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pipeline"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
)

type resultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *resultRepository {
	return &resultRepository{db: db}
}

// Write stores the forecast and its risk assessment in one transaction. Rewriting the same
// key replaces the earlier payloads.
func (r *resultRepository) Write(ctx context.Context, key domain.ResultKey, forecast *domain.ForecastResult, risk *domain.RiskAssessment) error {
	forecastJSON, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}
	riskJSON, err := json.Marshal(risk)
	if err != nil {
		return fmt.Errorf("failed to encode risk assessment: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Forecast
		_, err := tx.ExecContext(ctx, `
			INSERT INTO forecast_results (user_id, sku, request_id, methodology, confidence, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (user_id, sku, request_id)
			DO UPDATE SET
				methodology = EXCLUDED.methodology,
				confidence = EXCLUDED.confidence,
				payload = EXCLUDED.payload,
				updated_at = NOW()
		`, key.UserID, key.SKU, key.RequestID, string(forecast.Methodology), forecast.Confidence, forecastJSON)
		if err != nil {
			return fmt.Errorf("failed to upsert forecast result: %w", err)
		}

		// 2. Risk assessment
		_, err = tx.ExecContext(ctx, `
			INSERT INTO risk_assessments (user_id, sku, request_id, stockout_severity, overstock_severity, action, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (user_id, sku, request_id)
			DO UPDATE SET
				stockout_severity = EXCLUDED.stockout_severity,
				overstock_severity = EXCLUDED.overstock_severity,
				action = EXCLUDED.action,
				payload = EXCLUDED.payload,
				updated_at = NOW()
		`, key.UserID, key.SKU, key.RequestID,
			string(risk.StockoutRisk.Severity), string(risk.OverstockRisk.Severity),
			string(risk.Recommendation.Action), riskJSON)
		if err != nil {
			return fmt.Errorf("failed to upsert risk assessment: %w", err)
		}
		return nil
	})
}

type latestRow struct {
	RequestID    string    `db:"request_id"`
	ForecastJSON []byte    `db:"forecast_payload"`
	RiskJSON     []byte    `db:"risk_payload"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *resultRepository) GetLatest(ctx context.Context, userID, sku string) (*repository.StoredResult, error) {
	query := `
		SELECT f.request_id, f.payload AS forecast_payload, ra.payload AS risk_payload, f.created_at
		FROM forecast_results f
		JOIN risk_assessments ra
		  ON ra.user_id = f.user_id AND ra.sku = f.sku AND ra.request_id = f.request_id
		WHERE f.user_id = $1 AND f.sku = $2
		ORDER BY f.created_at DESC
		LIMIT 1
	`

	var row latestRow
	if err := r.db.GetContext(ctx, &row, query, userID, sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("result %s/%s: %w", userID, sku, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}

	out := &repository.StoredResult{
		Key:       domain.ResultKey{UserID: userID, SKU: sku, RequestID: row.RequestID},
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.ForecastJSON, &out.Forecast); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	if err := json.Unmarshal(row.RiskJSON, &out.Risk); err != nil {
		return nil, fmt.Errorf("failed to decode risk assessment: %w", err)
	}
	return out, nil
}

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

// RecordRun upserts the run so a retried batch with the same id overwrites its summary
func (r *runRepository) RecordRun(ctx context.Context, userID string, run pipeline.BatchRun) error {
	query := `
		INSERT INTO batch_runs (id, user_id, name, status, total, completed, failed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			completed = EXCLUDED.completed,
			failed = EXCLUDED.failed,
			completed_at = EXCLUDED.completed_at
	`

	var completedAt sql.NullTime
	if !run.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: run.CompletedAt, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		run.ID, userID, run.Name, string(run.Status),
		run.Total, run.Completed, run.Failed, run.StartedAt, completedAt,
	); err != nil {
		return fmt.Errorf("failed to record batch run: %w", err)
	}
	return nil
}

var (
	_ repository.CalendarStore          = (*calendarRepository)(nil)
	_ repository.InventorySnapshotStore = (*inventoryRepository)(nil)
	_ repository.SalesHistoryStore      = (*historyRepository)(nil)
	_ repository.ResultStore            = (*resultRepository)(nil)
	_ repository.RunRecorder            = (*runRepository)(nil)
)
