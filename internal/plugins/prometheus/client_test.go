package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/models"
)

// fakePrometheus answers instant queries from a map of query -> sample value.
// Unknown queries return an empty vector.
type fakePrometheus struct {
	mu      sync.Mutex
	samples map[string]string
	queries []string
	auth    string
}

func (f *fakePrometheus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := r.Form.Get("query")

	f.mu.Lock()
	f.queries = append(f.queries, query)
	if user, pass, ok := r.BasicAuth(); ok {
		f.auth = user + ":" + pass
	}
	value, known := f.samples[query]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/query_range"):
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1717000000,"1"],[1717000060,"3"],[1717000120,"2"]]}]}}`)
	case known:
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1717000000,"%s"]}]}}`, value)
	default:
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
	}
}

func (f *fakePrometheus) seen() (queries []string, auth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries), f.auth
}

func newTestPlugin(t *testing.T, fake *fakePrometheus, config models.PluginConfig) *PrometheusPlugin {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	config.Enabled = true
	config.URL = srv.URL
	p := NewPrometheusPlugin("prom", "", zerolog.Nop())
	if err := p.Configure(&config); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return p
}

func TestQueries(t *testing.T) {
	p := NewPrometheusPlugin("prom", "", zerolog.Nop())
	if err := p.Configure(&models.PluginConfig{Labels: map[string]string{"cluster": "east"}}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if got, want := p.activeQuery(models.QueueTarget("ORDERS")), `sum(nats_stream_total_messages{cluster="east",stream_name="ORDERS"})`; got != want {
		t.Fatalf("queue query:\n got %s\nwant %s", got, want)
	}
	want := `sum(nats_consumer_num_pending{cluster="east",consumer_name="billing",stream_name="EVENTS"}) + ` +
		`sum(nats_consumer_num_ack_pending{cluster="east",consumer_name="billing",stream_name="EVENTS"})`
	if got := p.activeQuery(models.SubscriptionTarget("EVENTS", "billing")); got != want {
		t.Fatalf("subscription query:\n got %s\nwant %s", got, want)
	}
	if got, want := p.deadLetterQuery(models.SubscriptionTarget("EVENTS", "billing")), `sum(nats_stream_total_messages{cluster="east",stream_name="EVENTS_billing_DLQ"})`; got != want {
		t.Fatalf("dead-letter query:\n got %s\nwant %s", got, want)
	}
}

func TestRuntimeCounts(t *testing.T) {
	fake := &fakePrometheus{samples: map[string]string{
		`sum(nats_stream_total_messages{stream_name="ORDERS"})`:     "42",
		`sum(nats_stream_total_messages{stream_name="ORDERS_DLQ"})`: "0",
	}}
	p := newTestPlugin(t, fake, models.PluginConfig{Username: "admin", Password: "pw", QueryTimeout: "2s"})

	counts, err := p.RuntimeCounts(context.Background(), models.QueueTarget("ORDERS"))
	if err != nil {
		t.Fatalf("RuntimeCounts: %v", err)
	}
	if counts.Active == nil || *counts.Active != 42 || counts.DeadLetter == nil || *counts.DeadLetter != 0 {
		t.Fatalf("counts = %+v", counts)
	}
	if _, auth := fake.seen(); auth != "admin:pw" {
		t.Fatalf("basic auth not sent, got %q", auth)
	}

	counts, err = p.RuntimeCounts(context.Background(), models.QueueTarget("UNKNOWN"))
	if err != nil {
		t.Fatalf("RuntimeCounts: %v", err)
	}
	if counts.Active != nil || counts.DeadLetter != nil {
		t.Fatalf("empty vectors should be unknown, got %+v", counts)
	}
}

func TestActiveHistory(t *testing.T) {
	p := newTestPlugin(t, &fakePrometheus{}, models.PluginConfig{})

	points, err := p.ActiveHistory(context.Background(), models.QueueTarget("ORDERS"), 10*time.Minute)
	if err != nil {
		t.Fatalf("ActiveHistory: %v", err)
	}
	if !slices.Equal(points, []float64{1, 3, 2}) {
		t.Fatalf("points = %v", points)
	}
}

func TestHealthCheck(t *testing.T) {
	fake := &fakePrometheus{}
	p := newTestPlugin(t, fake, models.PluginConfig{})
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if queries, _ := fake.seen(); len(queries) != 1 || queries[0] != "up" {
		t.Fatalf("queries = %v", queries)
	}
}

func TestDisabledAndInvalidConfig(t *testing.T) {
	p := NewPrometheusPlugin("prom", "", zerolog.Nop())
	if err := p.Configure(&models.PluginConfig{Enabled: false}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := p.RuntimeCounts(context.Background(), models.QueueTarget("ORDERS")); err == nil {
		t.Fatalf("disabled plugin should refuse queries")
	}

	bad := NewPrometheusPlugin("prom", "", zerolog.Nop())
	if err := bad.Configure(&models.PluginConfig{Enabled: true, URL: "http://localhost:9090", QueryTimeout: "soon"}); err == nil {
		t.Fatalf("expected invalid query_timeout error")
	}
}

func TestCountFromValueRounds(t *testing.T) {
	fake := &fakePrometheus{samples: map[string]string{
		`sum(nats_stream_total_messages{stream_name="ORDERS"})`:     "6.6",
		`sum(nats_stream_total_messages{stream_name="ORDERS_DLQ"})`: "NaN",
	}}
	p := newTestPlugin(t, fake, models.PluginConfig{})

	counts, err := p.RuntimeCounts(context.Background(), models.QueueTarget("ORDERS"))
	if err != nil {
		t.Fatalf("RuntimeCounts: %v", err)
	}
	if counts.Active == nil || *counts.Active != 7 || counts.DeadLetter != nil {
		t.Fatalf("counts = %+v", counts)
	}
}
