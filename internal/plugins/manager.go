package plugins

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/shubhamrasal/peekq/internal/models"
	"github.com/shubhamrasal/peekq/internal/plugins/prometheus"
)

// Manager manages metrics plugins
type Manager struct {
	plugins          map[string]CountsPlugin
	deadLetterSuffix string
	logger           zerolog.Logger
}

// NewManager creates a new plugin manager
func NewManager(deadLetterSuffix string, logger zerolog.Logger) *Manager {
	return &Manager{
		plugins:          make(map[string]CountsPlugin),
		deadLetterSuffix: deadLetterSuffix,
		logger:           logger,
	}
}

// LoadPlugins loads plugin configurations from pluginPath and initializes plugins
func (m *Manager) LoadPlugins(pluginPath string) error {
	// Check if file exists
	if _, err := os.Stat(pluginPath); os.IsNotExist(err) {
		// No plugins configured - that's OK
		return nil
	}

	// Load plugin config
	data, err := os.ReadFile(pluginPath)
	if err != nil {
		return fmt.Errorf("failed to read plugins file: %w", err)
	}

	var pluginsConfig models.PluginsConfig
	if err := yaml.Unmarshal(data, &pluginsConfig); err != nil {
		return fmt.Errorf("failed to parse plugins file: %w", err)
	}

	// Initialize each plugin
	for i := range pluginsConfig.Plugins {
		config := &pluginsConfig.Plugins[i]
		if err := m.loadPlugin(config); err != nil {
			// continue loading other plugins
			m.logger.Warn().Err(err).Str("plugin", config.Name).Msg("skipping plugin")
			continue
		}
		m.logger.Debug().Str("plugin", config.Name).Str("type", config.Type).Bool("enabled", config.Enabled).Msg("plugin loaded")
	}

	return nil
}

// loadPlugin loads a single plugin
func (m *Manager) loadPlugin(config *models.PluginConfig) error {
	var plugin CountsPlugin

	switch config.Type {
	case "prometheus":
		plugin = prometheus.NewPrometheusPlugin(config.Name, m.deadLetterSuffix, m.logger)
	default:
		return fmt.Errorf("unknown plugin type: %s", config.Type)
	}

	// Configure the plugin
	if err := plugin.Configure(config); err != nil {
		return fmt.Errorf("failed to configure plugin %s: %w", config.Name, err)
	}

	// Store the plugin
	m.plugins[config.Name] = plugin

	return nil
}

// GetPlugin returns a plugin by name
func (m *Manager) GetPlugin(name string) (CountsPlugin, error) {
	plugin, exists := m.plugins[name]
	if !exists {
		return nil, fmt.Errorf("plugin '%s' not found", name)
	}

	if !plugin.IsEnabled() {
		return nil, fmt.Errorf("plugin '%s' is not enabled", name)
	}

	return plugin, nil
}

// HasPlugin checks if a plugin exists and is enabled
func (m *Manager) HasPlugin(name string) bool {
	plugin, exists := m.plugins[name]
	return exists && plugin.IsEnabled()
}
