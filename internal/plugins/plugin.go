package plugins

import (
	"context"
	"time"

	"github.com/shubhamrasal/peekq/internal/models"
)

// CountsPlugin is the interface all metrics plugins must implement.
// A plugin can stand in for the broker as the source of runtime counts.
type CountsPlugin interface {
	// Name returns the plugin name
	Name() string

	// Configure initializes the plugin with config
	Configure(config *models.PluginConfig) error

	// RuntimeCounts fetches the current active and dead-letter counts; nil fields are unknown
	RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error)

	// ActiveHistory fetches the active count over the trailing window, oldest first
	ActiveHistory(ctx context.Context, target models.Target, window time.Duration) ([]float64, error)

	// HealthCheck verifies the plugin is working
	HealthCheck(ctx context.Context) error

	// IsEnabled returns whether the plugin is enabled
	IsEnabled() bool
}
