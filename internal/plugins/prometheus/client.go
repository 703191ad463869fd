package prometheus

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/models"
)

const defaultQueryTimeout = 5 * time.Second

// PrometheusPlugin reads runtime counts from the NATS exporter series in Prometheus
type PrometheusPlugin struct {
	name             string
	deadLetterSuffix string
	config           *models.PluginConfig
	client           api.Client
	queryAPI         v1.API
	queryTimeout     time.Duration
	enabled          bool
	logger           zerolog.Logger
}

// NewPrometheusPlugin creates a new Prometheus plugin
func NewPrometheusPlugin(name, deadLetterSuffix string, logger zerolog.Logger) *PrometheusPlugin {
	return &PrometheusPlugin{
		name:             name,
		deadLetterSuffix: deadLetterSuffix,
		queryTimeout:     defaultQueryTimeout,
		enabled:          false,
		logger:           logger.With().Str("plugin", name).Logger(),
	}
}

// Name returns the plugin name
func (p *PrometheusPlugin) Name() string {
	return p.name
}

// Configure initializes the plugin
func (p *PrometheusPlugin) Configure(config *models.PluginConfig) error {
	p.config = config
	p.enabled = config.Enabled

	if !config.Enabled {
		return nil
	}

	if config.QueryTimeout != "" {
		d, err := time.ParseDuration(config.QueryTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid query_timeout %q", config.QueryTimeout)
		}
		p.queryTimeout = d
	}

	// Create HTTP client with basic auth if provided
	roundTripper := api.DefaultRoundTripper
	if config.Username != "" || config.Password != "" {
		roundTripper = &basicAuthRoundTripper{
			username: config.Username,
			password: config.Password,
			next:     api.DefaultRoundTripper,
		}
	}

	// Create Prometheus API client
	client, err := api.NewClient(api.Config{
		Address:      config.URL,
		RoundTripper: roundTripper,
	})
	if err != nil {
		return fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	p.client = client
	p.queryAPI = v1.NewAPI(client)

	return nil
}

// basicAuthRoundTripper implements HTTP basic authentication
type basicAuthRoundTripper struct {
	username string
	password string
	next     http.RoundTripper
}

func (rt *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.username != "" || rt.password != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(rt.username, rt.password)
	}
	return rt.next.RoundTrip(req)
}

// RuntimeCounts runs one instant query per sub-queue. A query with no samples yields an unknown count.
func (p *PrometheusPlugin) RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error) {
	if !p.enabled {
		return models.Counts{}, fmt.Errorf("plugin not enabled")
	}
	if target.IsZero() {
		return models.Counts{}, nil
	}

	active, err := p.queryCount(ctx, p.activeQuery(target))
	if err != nil {
		return models.Counts{}, err
	}
	deadLetter, err := p.queryCount(ctx, p.deadLetterQuery(target))
	if err != nil {
		return models.Counts{}, err
	}
	return models.Counts{Active: active, DeadLetter: deadLetter}, nil
}

// ActiveHistory fetches the active count over the trailing window at 60 steps
func (p *PrometheusPlugin) ActiveHistory(ctx context.Context, target models.Target, window time.Duration) ([]float64, error) {
	if !p.enabled {
		return nil, fmt.Errorf("plugin not enabled")
	}
	if window <= 0 {
		window = time.Hour
	}

	end := time.Now()
	series, err := p.queryRange(ctx, p.activeQuery(target), end.Add(-window), end, window/60)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}
	return series[0], nil
}

func (p *PrometheusPlugin) queryCount(ctx context.Context, query string) (*int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	result, warnings, err := p.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	p.logWarnings(query, warnings)

	return countFromValue(result), nil
}

// queryRange executes a range query
func (p *PrometheusPlugin) queryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, warnings, err := p.queryAPI.QueryRange(ctx, query, v1.Range{
		Start: start,
		End:   end,
		Step:  step,
	})
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	p.logWarnings(query, warnings)

	return pointsFromMatrix(result), nil
}

func (p *PrometheusPlugin) logWarnings(query string, warnings v1.Warnings) {
	for _, w := range warnings {
		p.logger.Warn().Str("query", query).Str("warning", w).Msg("prometheus query warning")
	}
}

// countFromValue converts an instant query result to a count; no samples means unknown
func countFromValue(value model.Value) *int64 {
	var f float64
	switch v := value.(type) {
	case model.Vector:
		if len(v) == 0 {
			return nil
		}
		f = float64(v[0].Value)
	case *model.Scalar:
		f = float64(v.Value)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int64(math.Round(math.Max(f, 0)))
	return &n
}

// pointsFromMatrix converts a range query result to one point slice per series
func pointsFromMatrix(value model.Value) [][]float64 {
	matrix, ok := value.(model.Matrix)
	if !ok {
		return nil
	}

	var series [][]float64
	for _, sampleStream := range matrix {
		points := make([]float64, len(sampleStream.Values))
		for i, sample := range sampleStream.Values {
			points[i] = float64(sample.Value)
		}
		series = append(series, points)
	}
	return series
}

// activeQuery counts messages not yet consumed: stream messages for a queue,
// pending plus ack-pending for a subscription
func (p *PrometheusPlugin) activeQuery(target models.Target) string {
	if target.Kind == models.KindSubscription {
		labels := map[string]string{"stream_name": target.Topic, "consumer_name": target.Name}
		return fmt.Sprintf("sum(%s) + sum(%s)",
			p.selector("nats_consumer_num_pending", labels),
			p.selector("nats_consumer_num_ack_pending", labels))
	}
	return fmt.Sprintf("sum(%s)", p.selector("nats_stream_total_messages", map[string]string{"stream_name": target.Name}))
}

func (p *PrometheusPlugin) deadLetterQuery(target models.Target) string {
	stream := models.DeadLetterName(target, p.deadLetterSuffix)
	return fmt.Sprintf("sum(%s)", p.selector("nats_stream_total_messages", map[string]string{"stream_name": stream}))
}

// selector builds metric{...} with the plugin's extra labels and the given matchers, sorted by name
func (p *PrometheusPlugin) selector(metric string, matchers map[string]string) string {
	labels := make(map[string]string, len(matchers))
	if p.config != nil {
		for k, v := range p.config.Labels {
			labels[k] = v
		}
	}
	for k, v := range matchers {
		labels[k] = v
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]string, 0, len(keys))
	for _, k := range keys {
		filters = append(filters, fmt.Sprintf("%s=%q", k, labels[k]))
	}

	return metric + "{" + strings.Join(filters, ",") + "}"
}

// HealthCheck verifies Prometheus is reachable
func (p *PrometheusPlugin) HealthCheck(ctx context.Context) error {
	if !p.enabled {
		return fmt.Errorf("plugin not enabled")
	}

	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	// Simple query to check if Prometheus is alive
	_, _, err := p.queryAPI.Query(ctx, "up", time.Now())
	if err != nil {
		return fmt.Errorf("prometheus health check failed: %w", err)
	}

	return nil
}

// IsEnabled returns whether the plugin is enabled
func (p *PrometheusPlugin) IsEnabled() bool {
	return p.enabled
}
