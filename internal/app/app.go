package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/config"
	"github.com/shubhamrasal/peekq/internal/metrics"
	"github.com/shubhamrasal/peekq/internal/models"
	"github.com/shubhamrasal/peekq/internal/nats"
	"github.com/shubhamrasal/peekq/internal/plugins"
	"github.com/shubhamrasal/peekq/internal/ui"
)

// Options are the flags shared by every command
type Options struct {
	ServerURL   string
	ConfigPath  string
	PluginsPath string
	Context     string
	MetricsAddr string
	LogLevel    string
	LogFile     string
}

// env holds what every command builds before connecting
type env struct {
	cfg       *config.Config
	plugins   *plugins.Manager
	metrics   metrics.Service
	logger    zerolog.Logger
	logCloser io.Closer
}

func setup(ctx context.Context, opts Options, headless bool) (*env, error) {
	logger, closer, err := NewLogger(opts.LogLevel, opts.LogFile, headless)
	if err != nil {
		return nil, err
	}

	// Load configuration
	cfg, err := config.Load(opts.ConfigPath, opts.ServerURL)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Context != "" {
		if err := cfg.SetContext(opts.Context); err != nil {
			closer.Close()
			return nil, err
		}
	}
	logger.Debug().Str("source", cfg.GetConfigSourceDescription()).Str("context", cfg.CurrentContextName()).Msg("configuration loaded")

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath, _ = config.DefaultPath()
	}

	// Initialize plugin manager
	pluginsPath := opts.PluginsPath
	if pluginsPath == "" {
		if configPath != "" {
			pluginsPath = filepath.Join(filepath.Dir(configPath), "plugins.yaml")
		} else if pluginsPath, err = config.DefaultPluginsPath(); err != nil {
			closer.Close()
			return nil, err
		}
	}
	pluginMgr := plugins.NewManager(cfg.Browse.Suffix(), logger)
	if err := pluginMgr.LoadPlugins(pluginsPath); err != nil {
		// plugins are optional
		logger.Warn().Err(err).Str("path", pluginsPath).Msg("failed to load plugins")
	}

	service := metrics.NewMetricsService(false, nil)
	if opts.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		service = metrics.NewMetricsService(true, registry)
		metrics.Serve(ctx, opts.MetricsAddr, registry)
	}

	return &env{
		cfg:       cfg,
		plugins:   pluginMgr,
		metrics:   service,
		logger:    logger,
		logCloser: closer,
	}, nil
}

func (e *env) Close() {
	e.logCloser.Close()
}

// connect dials the context's server and builds a session on it. Counts come from the
// context's metrics plugin when one is configured and enabled, otherwise from the broker.
func (e *env) connect(natsCtx *config.Context, listener browse.Listener) (ui.Backend, error) {
	client, err := nats.NewClient(natsCtx, e.cfg.Browse.Suffix(), e.logger)
	if err != nil {
		return nil, err
	}

	b := &backend{client: client}
	var source browse.CountsSource = client
	if natsCtx.MetricsPlugin != "" {
		plugin, err := e.plugins.GetPlugin(natsCtx.MetricsPlugin)
		if err != nil {
			e.logger.Warn().Err(err).Str("context", natsCtx.Name).Msg("metrics plugin unavailable, counting through the broker")
		} else {
			source = plugin
			b.history = plugin
		}
	}

	b.session = browse.NewSession(client, source,
		browse.WithSettings(e.cfg.Browse.Settings()),
		browse.WithLogger(e.logger.With().Str("context", natsCtx.Name).Logger()),
		browse.WithMetrics(e.metrics),
		browse.WithListener(listener),
	)
	return b, nil
}

// watchSettings pushes browse settings from the config file to apply whenever it changes
func (e *env) watchSettings(ctx context.Context, apply func(browse.Settings)) {
	if e.cfg.GetConfigSource() != config.SourceConfigFile {
		return
	}

	watcher, err := config.NewWatcher(e.cfg.GetConfigSourcePath(), e.logger)
	if err != nil {
		e.logger.Warn().Err(err).Msg("config hot reload disabled")
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-watcher.Changes():
				apply(cfg.Browse.Settings())
			}
		}
	}()
}

// backend is one connection with its browsing session
type backend struct {
	client  *nats.Client
	session *browse.Session
	history plugins.CountsPlugin
}

func (b *backend) Session() *browse.Session {
	return b.session
}

func (b *backend) ListEntities(ctx context.Context) ([]models.Entity, error) {
	return b.client.ListEntities(ctx)
}

func (b *backend) MessageDetail(ctx context.Context, target models.Target, sub models.SubQueue, seq int64) (*models.MessageDetail, error) {
	return b.client.GetMessageDetail(ctx, target, sub, seq)
}

func (b *backend) ActiveHistory(ctx context.Context, target models.Target, window time.Duration) ([]float64, error) {
	if b.history == nil {
		return nil, nil
	}
	return b.history.ActiveHistory(ctx, target, window)
}

func (b *backend) IsConnected() bool {
	return b.client.IsConnected()
}

func (b *backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}

func (b *backend) ServerInfo() (string, error) {
	return b.client.ServerInfo()
}

// Close disposes the session, waits briefly for its loops, then closes the connection
func (b *backend) Close() {
	b.session.Dispose()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = b.session.Wait(ctx)
	b.client.Close()
}

// Run starts the peekq terminal UI
func Run(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := setup(ctx, opts, false)
	if err != nil {
		return err
	}
	defer e.Close()

	// Create tview application
	app := tview.NewApplication()

	// Initialize UI manager
	uiManager := ui.NewUIManager(app, e.cfg, e.connect, e.logger)
	if err := uiManager.Connect(e.cfg.CurrentContext()); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer uiManager.Close()

	e.watchSettings(ctx, uiManager.ApplySettings)

	// Start the UI
	if err := uiManager.Start(); err != nil {
		return fmt.Errorf("failed to start UI: %w", err)
	}

	return nil
}
