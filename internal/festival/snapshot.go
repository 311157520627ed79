package festival

import (
	"context"
	"sort"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Snapshot is an immutable, versioned copy of the festival calendar.
type Snapshot struct {
	version string
	events  []domain.FestivalEvent
}

// NewSnapshot copies events into a read-only snapshot ordered by start date.
func NewSnapshot(version string, events []domain.FestivalEvent) *Snapshot {
	cp := make([]domain.FestivalEvent, len(events))
	copy(cp, events)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].StartDate.Before(cp[j].StartDate)
	})
	return &Snapshot{version: version, events: cp}
}

// Version identifies the calendar data the snapshot was built from
func (s *Snapshot) Version() string { return s.version }

// Len is the number of events in the snapshot
func (s *Snapshot) Len() int { return len(s.events) }

// Lookup returns the events starting inside dateRange that apply to any of regions.
func (s *Snapshot) Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Unavailable("calendar", domain.ErrCalendarUnavailable, err)
	}
	regionSet := toSet(regions)
	out := make([]domain.FestivalEvent, 0)
	for _, ev := range s.events {
		if !dateRange.Contains(ev.StartDate) {
			continue
		}
		if appliesToRegions(ev, regionSet) {
			out = append(out, ev)
		}
	}
	return out, nil
}
