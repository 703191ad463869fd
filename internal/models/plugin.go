package models

// PluginConfig represents a metrics plugin configuration
type PluginConfig struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"` // "prometheus"
	Enabled      bool              `yaml:"enabled"`
	URL          string            `yaml:"url"`
	Username     string            `yaml:"username,omitempty"`
	Password     string            `yaml:"password,omitempty"`
	QueryTimeout string            `yaml:"query_timeout,omitempty"` // "5s"
	Labels       map[string]string `yaml:"labels,omitempty"`        // Extra labels for filtering
}

// PluginsConfig holds all plugin configurations
type PluginsConfig struct {
	Plugins []PluginConfig `yaml:"plugins"`
}
