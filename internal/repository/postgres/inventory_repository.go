package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetSnapshot(ctx context.Context, userID, sku string) (*domain.InventorySnapshot, error) {
	query := `
		SELECT user_id, sku, current_stock, updated_at
		FROM inventory_snapshots
		WHERE user_id = $1 AND sku = $2
	`

	var snap domain.InventorySnapshot
	if err := r.db.GetContext(ctx, &snap, query, userID, sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("inventory snapshot %s/%s: %w", userID, sku, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inventory snapshot: %w", err)
	}
	return &snap, nil
}

func (r *inventoryRepository) UpsertSnapshot(ctx context.Context, snap domain.InventorySnapshot) error {
	query := `
		INSERT INTO inventory_snapshots (user_id, sku, current_stock, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, sku)
		DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			updated_at = EXCLUDED.updated_at
	`

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, query, snap.UserID, snap.SKU, snap.CurrentStock, updatedAt); err != nil {
		return fmt.Errorf("failed to upsert inventory snapshot: %w", err)
	}
	return nil
}

type historyRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) GetHistory(ctx context.Context, userID, sku string, from, to time.Time) ([]domain.SalesObservation, error) {
	query := `
		SELECT sale_date, sku, category, quantity_sold
		FROM sales_observations
		WHERE user_id = $1 AND sku = $2 AND sale_date >= $3 AND sale_date < $4
		ORDER BY sale_date
	`

	var history []domain.SalesObservation
	if err := r.db.SelectContext(ctx, &history, query, userID, sku, domain.DayOf(from), domain.DayOf(to)); err != nil {
		return nil, fmt.Errorf("failed to get sales history: %w", err)
	}
	return history, nil
}

// RecordSales upserts one row per SKU and day
func (r *historyRepository) RecordSales(ctx context.Context, userID string, observations []domain.SalesObservation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sales_observations (user_id, sku, sale_date, category, quantity_sold)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, sku, sale_date)
			DO UPDATE SET
				category = EXCLUDED.category,
				quantity_sold = EXCLUDED.quantity_sold
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, o := range observations {
			if _, err := stmt.ExecContext(ctx, userID, o.SKU, domain.DayOf(o.Date), o.Category, o.QuantitySold); err != nil {
				return fmt.Errorf("failed to insert sales observation: %w", err)
			}
		}
		return nil
	})
}
