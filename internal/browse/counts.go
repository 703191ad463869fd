package browse

import (
	"context"

	"github.com/shubhamrasal/peekq/internal/models"
)

// CountsSource returns authoritative runtime counts. A nil field means the value is unknown.
type CountsSource interface {
	RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error)
}

// CountsMonitor fetches runtime counts and decides which views they empty
type CountsMonitor struct {
	source CountsSource
}

func NewCountsMonitor(source CountsSource) *CountsMonitor {
	return &CountsMonitor{source: source}
}

// Refresh fetches counts for target. On failure both counts are unknown.
func (m *CountsMonitor) Refresh(ctx context.Context, target models.Target) (models.Counts, error) {
	if target.IsZero() || m.source == nil {
		return models.Counts{}, nil
	}
	counts, err := m.source.RuntimeCounts(ctx, target)
	if err != nil {
		return models.Counts{}, err
	}
	return counts, nil
}

// EmptiedViews returns the views whose count is known to be zero.
// Unknown counts never clear anything.
func EmptiedViews(c models.Counts) []View {
	var views []View
	if c.Active != nil && *c.Active == 0 {
		views = append(views, ViewActive)
	}
	if c.DeadLetter != nil && *c.DeadLetter == 0 {
		views = append(views, ViewDeadLetter)
	}
	return views
}

func countFor(c models.Counts, v View) *int64 {
	if v == ViewDeadLetter {
		return c.DeadLetter
	}
	return c.Active
}
