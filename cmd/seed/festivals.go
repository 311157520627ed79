package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/cache"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository/postgres"
)

type eventUpserter interface {
	UpsertEvents(ctx context.Context, events []domain.FestivalEvent) error
}

type festivalFile struct {
	Festivals []domain.FestivalEvent `yaml:"festivals"`
}

func seedFestivals(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	events, err := parseFestivals(file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	calendarCache, err := cache.NewCalendarCache(config.Load().Cache)
	if err != nil {
		log.Printf("warning: calendar cache unavailable, cached lookups expire with their TTL: %v", err)
		calendarCache = cache.NewNoopCalendarCache()
	}

	log.Printf("Seeding %d festival events from %s\n", len(events), path)
	if err := storeFestivals(c.Context, postgres.NewCalendarRepository(db), calendarCache, events); err != nil {
		return err
	}
	log.Println("Festival calendar seeded successfully!")
	return nil
}

// storeFestivals upserts events then drops cached calendar lookups so the server reads them.
// A cache failure is reported but does not fail the seed.
func storeFestivals(ctx context.Context, repo eventUpserter, calendarCache cache.CalendarCache, events []domain.FestivalEvent) error {
	if err := repo.UpsertEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to seed festivals: %w", err)
	}
	if err := calendarCache.InvalidateAll(ctx); err != nil {
		log.Printf("warning: failed to invalidate calendar cache: %v", err)
	}
	return nil
}

// parseFestivals decodes and checks a calendar document. Duration defaults to one day.
func parseFestivals(r io.Reader) ([]domain.FestivalEvent, error) {
	var doc festivalFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode festivals: %w", err)
	}

	seen := make(map[string]bool, len(doc.Festivals))
	for i := range doc.Festivals {
		ev := &doc.Festivals[i]
		ev.FestivalID = strings.TrimSpace(ev.FestivalID)
		switch {
		case ev.FestivalID == "":
			return nil, fmt.Errorf("festival %d: festivalId is required", i+1)
		case seen[ev.FestivalID]:
			return nil, fmt.Errorf("festival %s: duplicate festivalId", ev.FestivalID)
		case ev.StartDate.IsZero():
			return nil, fmt.Errorf("festival %s: startDate is required", ev.FestivalID)
		case len(ev.Regions) == 0:
			return nil, fmt.Errorf("festival %s: at least one region is required", ev.FestivalID)
		case ev.PreparationDays < 0:
			return nil, fmt.Errorf("festival %s: preparationDays must not be negative", ev.FestivalID)
		}
		for cat, m := range ev.DemandMultipliers {
			if m < 1 {
				return nil, fmt.Errorf("festival %s: multiplier for %s must be at least 1", ev.FestivalID, cat)
			}
		}
		if ev.DurationDays < 1 {
			ev.DurationDays = 1
		}
		ev.StartDate = domain.DayOf(ev.StartDate)
		seen[ev.FestivalID] = true
	}
	return doc.Festivals, nil
}
