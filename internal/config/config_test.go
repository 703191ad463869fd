package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shubhamrasal/peekq/internal/browse"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadServerFlagWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", "nats://example:4222")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetConfigSource() != SourceCLI || cfg.CurrentContext().Server != "nats://example:4222" {
		t.Fatalf("unexpected config: source=%s server=%s", cfg.GetConfigSource(), cfg.CurrentContext().Server)
	}
	if got := cfg.Browse.Settings(); got != browse.DefaultSettings() {
		t.Fatalf("cli config should use default browse settings, got %+v", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PEEKQ_TEST_PASSWORD", "s3cret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `contexts:
  - name: local
    server: nats://localhost:4222
  - name: prod
    server: nats://prod:4222
    creds: ./prod.creds
    user: ops
    password: $PEEKQ_TEST_PASSWORD
    metrics_plugin: prom
default_context: prod
browse:
  page_size: 20
  live_interval: 500ms
  counts_interval: nonsense
  dead_letter_suffix: .dlq
`)

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := cfg.CurrentContext()
	if ctx.Name != "prod" || ctx.MetricsPlugin != "prom" || ctx.User != "ops" || ctx.Password != "s3cret" {
		t.Fatalf("unexpected context: %+v", ctx)
	}
	if want := filepath.Join(dir, "prod.creds"); ctx.Creds != want {
		t.Fatalf("creds = %q, want %q", ctx.Creds, want)
	}

	settings := cfg.Browse.Settings()
	if settings.PageSize != 20 || settings.LiveInterval != 500*time.Millisecond {
		t.Fatalf("browse settings not applied: %+v", settings)
	}
	if settings.CountsInterval != browse.DefaultCountsInterval || settings.DeadLetterPages != browse.DefaultDeadLetterPages {
		t.Fatalf("invalid values should fall back to defaults: %+v", settings)
	}
	if cfg.Browse.Suffix() != ".dlq" {
		t.Fatalf("suffix = %q", cfg.Browse.Suffix())
	}
}

func TestLoadFallsBackToNATSContext(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".config", "nats", "context", "dev.json"),
		`{"url": "nats://dev:4222", "user": "alice", "password": "pw", "creds": "dev.creds"}`)
	writeFile(t, filepath.Join(home, ".config", "nats", "context.txt"), "dev\n")

	cfg, err := Load(filepath.Join(home, "missing.yaml"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := cfg.CurrentContext()
	if cfg.GetConfigSource() != SourceNATSContext || ctx.Server != "nats://dev:4222" || ctx.User != "alice" {
		t.Fatalf("unexpected config: source=%s ctx=%+v", cfg.GetConfigSource(), ctx)
	}
	if want := filepath.Join(home, ".config", "nats", "context", "dev.creds"); ctx.Creds != want {
		t.Fatalf("creds = %q, want %q", ctx.Creds, want)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetConfigSource() != SourceDefault || cfg.CurrentContextName() != "local" {
		t.Fatalf("unexpected default config: %s %s", cfg.GetConfigSource(), cfg.CurrentContextName())
	}

	path := filepath.Join(home, ".config", "peekq", "config.yaml")
	saved, err := LoadFile(path)
	if err != nil {
		t.Fatalf("default config not saved: %v", err)
	}
	if saved.Browse.PageSize != browse.DefaultPageSize || saved.Browse.Suffix() != "_DLQ" {
		t.Fatalf("saved browse block: %+v", saved.Browse)
	}
}

func TestSetContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Contexts = append(cfg.Contexts, Context{Name: "prod", Server: "nats://prod:4222"})

	if err := cfg.SetContext("prod"); err != nil {
		t.Fatalf("SetContext: %v", err)
	}
	if cfg.CurrentContext().Server != "nats://prod:4222" || cfg.DefaultContext != "prod" {
		t.Fatalf("context not switched")
	}
	if err := cfg.SetContext("nope"); err == nil {
		t.Fatalf("expected error for unknown context")
	}
}
