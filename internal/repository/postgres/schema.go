package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *sql.DB, *sqlx.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS festival_events (
		festival_id        TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		start_date         DATE NOT NULL,
		regions            TEXT[] NOT NULL DEFAULT '{}',
		demand_multipliers JSONB NOT NULL DEFAULT '{}',
		duration_days      INTEGER NOT NULL DEFAULT 1,
		preparation_days   INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_festival_events_start ON festival_events (start_date)`,
	`CREATE TABLE IF NOT EXISTS inventory_snapshots (
		user_id       TEXT NOT NULL,
		sku           TEXT NOT NULL,
		current_stock DOUBLE PRECISION NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, sku)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_observations (
		user_id       TEXT NOT NULL,
		sku           TEXT NOT NULL,
		sale_date     DATE NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		quantity_sold DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (user_id, sku, sale_date)
	)`,
	`CREATE TABLE IF NOT EXISTS forecast_results (
		user_id     TEXT NOT NULL,
		sku         TEXT NOT NULL,
		request_id  TEXT NOT NULL,
		methodology TEXT NOT NULL,
		confidence  DOUBLE PRECISION NOT NULL,
		payload     JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ,
		PRIMARY KEY (user_id, sku, request_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forecast_results_latest ON forecast_results (user_id, sku, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS risk_assessments (
		user_id            TEXT NOT NULL,
		sku                TEXT NOT NULL,
		request_id         TEXT NOT NULL,
		stockout_severity  TEXT NOT NULL,
		overstock_severity TEXT NOT NULL,
		action             TEXT NOT NULL,
		payload            JSONB NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ,
		PRIMARY KEY (user_id, sku, request_id)
	)`,
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		name         TEXT NOT NULL,
		status       TEXT NOT NULL,
		total        INTEGER NOT NULL,
		completed    INTEGER NOT NULL,
		failed       INTEGER NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
}

// Migrate creates the tables the service needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("schema migrated")
	return nil
}
