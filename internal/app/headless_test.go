package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/models"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func summaries(from, to int64) []models.MessageSummary {
	var out []models.MessageSummary
	for s := from; s <= to; s++ {
		out = append(out, models.MessageSummary{
			SequenceNumber: s,
			EnqueuedTime:   baseTime.Add(time.Duration(s) * time.Second),
			Subject:        "orders.created",
			MessageID:      "m-" + strconv.FormatInt(s, 10),
		})
	}
	return out
}

// memBroker serves peeks and counts from memory
type memBroker struct {
	mu     sync.Mutex
	active []models.MessageSummary
	dead   []models.MessageSummary
}

func (b *memBroker) PeekActive(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	return b.peek(b.activeMessages(), maxCount, from), nil
}

func (b *memBroker) PeekDeadLetter(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	b.mu.Lock()
	dead := b.dead
	b.mu.Unlock()
	return b.peek(dead, maxCount, from), nil
}

func (b *memBroker) RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.KnownCounts(int64(len(b.active)), int64(len(b.dead))), nil
}

func (b *memBroker) activeMessages() []models.MessageSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *memBroker) publish(ms ...models.MessageSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = append(b.active, ms...)
}

func (b *memBroker) peek(source []models.MessageSummary, maxCount int, from models.Anchor) []models.MessageSummary {
	lower, set := from.Sequence()
	var out []models.MessageSummary
	for _, m := range source {
		if set && m.SequenceNumber < lower {
			continue
		}
		out = append(out, m)
		if len(out) == maxCount {
			break
		}
	}
	return out
}

// syncBuffer is written by the tail loop and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newSession(t *testing.T, broker *memBroker, settings browse.Settings, listener browse.Listener) *browse.Session {
	t.Helper()
	s := browse.NewSession(broker, broker,
		browse.WithSettings(settings),
		browse.WithLogger(zerolog.Nop()),
		browse.WithListener(listener),
	)
	t.Cleanup(func() {
		s.Dispose()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Wait(ctx); err != nil {
			t.Errorf("session loops did not exit: %v", err)
		}
	})
	return s
}

func TestWindowDiffEntered(t *testing.T) {
	d := newWindowDiff()

	if got := d.entered(browse.ViewActive, summaries(1, 3)); len(got) != 3 {
		t.Fatalf("first window: got %d new messages", len(got))
	}
	got := d.entered(browse.ViewActive, summaries(2, 5))
	if len(got) != 2 || got[0].SequenceNumber != 4 || got[1].SequenceNumber != 5 {
		t.Fatalf("second window: got %+v", got)
	}
	// views are tracked separately
	if got := d.entered(browse.ViewDeadLetter, summaries(4, 5)); len(got) != 2 {
		t.Fatalf("dead-letter window: got %d new messages", len(got))
	}
	// a cleared window forgets what it showed
	d.entered(browse.ViewActive, nil)
	if got := d.entered(browse.ViewActive, summaries(5, 5)); len(got) != 1 {
		t.Fatalf("after clear: got %d new messages", len(got))
	}
}

func TestPeekPagesStopsWhenAnchorWraps(t *testing.T) {
	broker := &memBroker{active: summaries(1, 120)}
	settings := browse.Settings{PageSize: 50, LiveInterval: time.Hour, CountsInterval: time.Hour, DeadLetterPages: 1}
	s := newSession(t, broker, settings, nil)

	var out bytes.Buffer
	if err := peekPages(context.Background(), s, models.QueueTarget("ORDERS"), browse.ViewActive, 5, newPrinter(&out, false)); err != nil {
		t.Fatalf("peek: %v", err)
	}

	text := out.String()
	for _, header := range []string{"# active page 1 (50 messages)", "# active page 2 (50 messages)", "# active page 3 (20 messages)"} {
		if !strings.Contains(text, header) {
			t.Fatalf("missing %q in output:\n%s", header, text)
		}
	}
	if strings.Contains(text, "page 4") {
		t.Fatalf("printed a wrapped page:\n%s", text)
	}
}

func TestPeekPagesJSON(t *testing.T) {
	broker := &memBroker{active: summaries(1, 10), dead: summaries(100, 104)}
	settings := browse.Settings{PageSize: 3, LiveInterval: time.Hour, CountsInterval: time.Hour, DeadLetterPages: 10}
	s := newSession(t, broker, settings, nil)

	var out bytes.Buffer
	if err := peekPages(context.Background(), s, models.QueueTarget("ORDERS"), browse.ViewDeadLetter, 1, newPrinter(&out, true)); err != nil {
		t.Fatalf("peek: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// the dead-letter view accumulates up to its count across pages
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	var rec messageRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.View != "dead-letter" || rec.Sequence != 100 || rec.Page != 1 || !rec.EnqueuedTime.Equal(baseTime.Add(100*time.Second)) {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestPeekPagesEmpty(t *testing.T) {
	s := newSession(t, &memBroker{}, browse.DefaultSettings(), nil)

	var out bytes.Buffer
	if err := peekPages(context.Background(), s, models.QueueTarget("ORDERS"), browse.ViewActive, 2, newPrinter(&out, false)); err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "no active messages" {
		t.Fatalf("got %q", got)
	}
}

func TestTailViewsPrintsEachMessageOnce(t *testing.T) {
	broker := &memBroker{active: summaries(1, 3)}
	events := make(chan browse.Event, 64)
	listener := func(ev browse.Event) {
		select {
		case events <- ev:
		default:
		}
	}
	settings := browse.Settings{PageSize: 50, LiveInterval: 10 * time.Millisecond, CountsInterval: time.Hour, DeadLetterPages: 1}
	s := newSession(t, broker, settings, listener)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- tailViews(ctx, s, models.QueueTarget("ORDERS"), []browse.View{browse.ViewActive}, events, newPrinter(&out, true))
	}()

	waitOutput(t, &out, 3)
	broker.publish(summaries(4, 5)...)
	waitOutput(t, &out, 5)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("tail: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tail did not stop")
	}

	seen := map[int64]int{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var rec messageRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		seen[rec.Sequence]++
	}
	for seq := int64(1); seq <= 5; seq++ {
		if seen[seq] != 1 {
			t.Fatalf("seq %d printed %d times", seq, seen[seq])
		}
	}
}

func waitOutput(t *testing.T, out *syncBuffer, lines int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for strings.Count(out.String(), "\n") < lines {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d lines, got:\n%s", lines, out.String())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
