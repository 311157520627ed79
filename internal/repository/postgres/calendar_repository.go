package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

type calendarRepository struct {
	db *DB
}

func NewCalendarRepository(db *DB) *calendarRepository {
	return &calendarRepository{db: db}
}

type festivalRow struct {
	FestivalID        string         `db:"festival_id"`
	Name              string         `db:"name"`
	StartDate         time.Time      `db:"start_date"`
	Regions           pq.StringArray `db:"regions"`
	DemandMultipliers []byte         `db:"demand_multipliers"`
	DurationDays      int            `db:"duration_days"`
	PreparationDays   int            `db:"preparation_days"`
}

// Lookup returns events starting inside the range that apply to any region or to all regions.
func (r *calendarRepository) Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error) {
	query := `
		SELECT festival_id, name, start_date, regions, demand_multipliers, duration_days, preparation_days
		FROM festival_events
		WHERE start_date >= $1 AND start_date <= $2
		  AND (regions && $3 OR 'all' = ANY(regions))
		ORDER BY start_date, festival_id
	`

	lowered := make([]string, len(regions))
	for i, region := range regions {
		lowered[i] = strings.ToLower(strings.TrimSpace(region))
	}

	var rows []festivalRow
	if err := r.db.SelectContext(ctx, &rows, query,
		domain.DayOf(dateRange.Start), domain.DayOf(dateRange.End), pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("failed to query festival events: %w", err)
	}

	events := make([]domain.FestivalEvent, 0, len(rows))
	for _, row := range rows {
		ev := domain.FestivalEvent{
			FestivalID:      row.FestivalID,
			Name:            row.Name,
			StartDate:       domain.DayOf(row.StartDate),
			Regions:         []string(row.Regions),
			DurationDays:    row.DurationDays,
			PreparationDays: row.PreparationDays,
		}
		if len(row.DemandMultipliers) > 0 {
			if err := json.Unmarshal(row.DemandMultipliers, &ev.DemandMultipliers); err != nil {
				return nil, fmt.Errorf("failed to decode multipliers for %s: %w", row.FestivalID, err)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// UpsertEvents writes calendar events keyed by festival id
func (r *calendarRepository) UpsertEvents(ctx context.Context, events []domain.FestivalEvent) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO festival_events (
				festival_id, name, start_date, regions, demand_multipliers,
				duration_days, preparation_days, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (festival_id)
			DO UPDATE SET
				name = EXCLUDED.name,
				start_date = EXCLUDED.start_date,
				regions = EXCLUDED.regions,
				demand_multipliers = EXCLUDED.demand_multipliers,
				duration_days = EXCLUDED.duration_days,
				preparation_days = EXCLUDED.preparation_days,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			multipliers, err := json.Marshal(ev.DemandMultipliers)
			if err != nil {
				return fmt.Errorf("failed to encode multipliers for %s: %w", ev.FestivalID, err)
			}
			regions := make([]string, len(ev.Regions))
			for i, region := range ev.Regions {
				regions[i] = strings.ToLower(strings.TrimSpace(region))
			}

			if _, err := stmt.ExecContext(ctx,
				ev.FestivalID,
				ev.Name,
				domain.DayOf(ev.StartDate),
				pq.Array(regions),
				multipliers,
				ev.DurationDays,
				ev.PreparationDays,
			); err != nil {
				return fmt.Errorf("failed to upsert festival %s: %w", ev.FestivalID, err)
			}
		}
		return nil
	})
}
