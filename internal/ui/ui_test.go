package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/config"
	"github.com/shubhamrasal/peekq/internal/models"
)

type fakeBackend struct {
	session *browse.Session
	url     string
	pingErr error
}

func (b *fakeBackend) Session() *browse.Session { return b.session }

func (b *fakeBackend) ListEntities(ctx context.Context) ([]models.Entity, error) { return nil, nil }

func (b *fakeBackend) MessageDetail(ctx context.Context, target models.Target, sub models.SubQueue, seq int64) (*models.MessageDetail, error) {
	return nil, errors.New("no detail")
}

func (b *fakeBackend) ActiveHistory(ctx context.Context, target models.Target, window time.Duration) ([]float64, error) {
	return nil, nil
}

func (b *fakeBackend) IsConnected() bool { return b.url != "" }

func (b *fakeBackend) Ping(ctx context.Context) error { return b.pingErr }

func (b *fakeBackend) ServerInfo() (string, error) {
	if b.url == "" {
		return "", errors.New("not connected")
	}
	return b.url, nil
}

func (b *fakeBackend) Close() { b.session.Dispose() }

func newTestUI(t *testing.T, backend *fakeBackend) *UIManager {
	t.Helper()
	cfg := &config.Config{Contexts: []config.Context{
		{Name: "local", Server: "nats://localhost:4222"},
		{Name: "prod", Server: "nats://prod:4222", MetricsPlugin: "prom"},
	}}
	if err := cfg.SetContext("local"); err != nil {
		t.Fatalf("SetContext: %v", err)
	}

	backend.session = browse.NewSession(nil, nil, browse.WithLogger(zerolog.Nop()))
	connect := func(*config.Context, browse.Listener) (Backend, error) { return backend, nil }
	ui := NewUIManager(tview.NewApplication(), cfg, connect, zerolog.Nop())
	if err := ui.Connect(cfg.CurrentContext()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(ui.Close)
	return ui
}

func TestConnectionCheckUpdatesHeader(t *testing.T) {
	backend := &fakeBackend{url: "nats://10.0.0.7:4222"}
	ui := newTestUI(t, backend)
	if !strings.Contains(ui.header.GetText(true), "Connected") {
		t.Fatalf("header = %q, want connected", ui.header.GetText(true))
	}

	ui.applyPing(backend, errors.New("flush timeout"))
	if !strings.Contains(ui.header.GetText(true), "Disconnected") {
		t.Fatalf("header = %q after failed ping", ui.header.GetText(true))
	}

	// a result for a replaced backend is ignored
	ui.applyPing(&fakeBackend{}, nil)
	if ui.healthy {
		t.Fatalf("ping of another backend changed the status")
	}

	ui.applyPing(backend, nil)
	if !ui.healthy || strings.Contains(ui.header.GetText(true), "Disconnected") {
		t.Fatalf("header = %q after recovery", ui.header.GetText(true))
	}
}

func TestContextViewShowsConnectedServer(t *testing.T) {
	ui := newTestUI(t, &fakeBackend{url: "nats://10.0.0.7:4222"})
	ui.contextView.Refresh()

	if got := ui.contextView.table.GetCell(1, 1).Text; got != "nats://10.0.0.7:4222 (connected)" {
		t.Fatalf("current context server = %q", got)
	}
	if got := ui.contextView.table.GetCell(2, 1).Text; got != "nats://prod:4222" {
		t.Fatalf("other context server = %q", got)
	}
	if got := ui.contextView.table.GetCell(2, 2).Text; got != "plugin prom" {
		t.Fatalf("counts source = %q", got)
	}
}

func TestFilterEntities(t *testing.T) {
	all := []models.Entity{
		{Target: models.QueueTarget("ORDERS")},
		{Target: models.SubscriptionTarget("ORDERS", "billing")},
		{Target: models.QueueTarget("PAYMENTS")},
	}

	if got := filterEntities(all, ""); len(got) != 3 {
		t.Fatalf("empty filter kept %d entities, want 3", len(got))
	}

	got := filterEntities(all, "order")
	if len(got) != 2 {
		t.Fatalf("filter kept %d entities, want 2", len(got))
	}

	got = filterEntities(all, "BILL")
	if len(got) != 1 || got[0].Target.Name != "billing" {
		t.Fatalf("filter = %+v, want ORDERS/billing", got)
	}

	if got := filterEntities(all, "nope"); len(got) != 0 {
		t.Fatalf("filter kept %d entities, want 0", len(got))
	}
}

func TestFormatHelpers(t *testing.T) {
	n := int64(2500)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"unknown count", formatOptionalCount(nil), "?"},
		{"known count", formatOptionalCount(&n), "2.5K"},
		{"small count", formatCount(42), "42"},
		{"millions", formatCount(3200000), "3.2M"},
		{"bytes", formatBytes(512), "512B"},
		{"kilobytes", formatBytes(2048), "2.0KB"},
		{"short text", truncate("orders", 10), "orders"},
		{"long text", truncate("orders.eu.created", 10), "orders...."},
		{"zero time", formatTime(time.Time{}), "-"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestTrendView(t *testing.T) {
	v := NewTrendView()
	if !strings.Contains(v.panel.GetText(false), "No data") {
		t.Fatalf("empty trend should show no data")
	}

	v.Append(5)
	v.Append(6)
	v.Seed([]float64{1, 2, 3})
	want := []float64{1, 2, 3, 5, 6}
	if len(v.points) != len(want) {
		t.Fatalf("points = %v, want %v", v.points, want)
	}
	for i := range want {
		if v.points[i] != want[i] {
			t.Fatalf("points = %v, want %v", v.points, want)
		}
	}

	for i := 0; i < maxTrendPoints+10; i++ {
		v.Append(float64(i))
	}
	if len(v.points) != maxTrendPoints {
		t.Fatalf("kept %d points, want %d", len(v.points), maxTrendPoints)
	}
	if last := v.points[len(v.points)-1]; last != float64(maxTrendPoints+9) {
		t.Fatalf("last point = %v, want %v", last, maxTrendPoints+9)
	}

	v.SetNote("history unavailable")
	if !strings.Contains(v.panel.GetText(false), "history unavailable") {
		t.Fatalf("note not rendered")
	}

	v.Reset()
	if len(v.points) != 0 {
		t.Fatalf("reset kept %d points", len(v.points))
	}
}
