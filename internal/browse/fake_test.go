package browse

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shubhamrasal/peekq/internal/models"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(seq int64) models.MessageSummary {
	return models.MessageSummary{
		SequenceNumber: seq,
		EnqueuedTime:   baseTime.Add(time.Duration(seq) * time.Second),
		Subject:        "orders.created",
	}
}

func msgs(seqs ...int64) []models.MessageSummary {
	out := make([]models.MessageSummary, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, msg(s))
	}
	return out
}

func seqRange(from, to int64) []models.MessageSummary {
	var out []models.MessageSummary
	for s := from; s <= to; s++ {
		out = append(out, msg(s))
	}
	return out
}

func seqsOf(ms []models.MessageSummary) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.SequenceNumber)
	}
	return out
}

type peekCall struct {
	sub  models.SubQueue
	max  int
	from models.Anchor
}

// fakeBroker serves peeks from in-memory slices. When block is set every peek waits for it
// to be closed, ignoring cancellation, to model a late broker response.
type fakeBroker struct {
	mu          sync.Mutex
	active      []models.MessageSummary
	dead        []models.MessageSummary
	peekErr     error
	block       chan struct{}
	calls       []peekCall
	inFlight    int
	maxInFlight int

	counts    models.Counts
	countsErr error
}

func (f *fakeBroker) PeekActive(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	return f.peek(models.SubQueueActive, maxCount, from)
}

func (f *fakeBroker) PeekDeadLetter(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	return f.peek(models.SubQueueDeadLetter, maxCount, from)
}

func (f *fakeBroker) peek(sub models.SubQueue, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, peekCall{sub: sub, max: maxCount, from: from})
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.peekErr != nil {
		return nil, f.peekErr
	}

	source := f.active
	if sub == models.SubQueueDeadLetter {
		source = f.dead
	}
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
	return out, nil
}

func (f *fakeBroker) RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts, f.countsErr
}

func (f *fakeBroker) setActive(ms []models.MessageSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = slices.Clone(ms)
}

func (f *fakeBroker) setCounts(c models.Counts) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = c
}

func (f *fakeBroker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBroker) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// fakeMetrics counts the events the session reports
type fakeMetrics struct {
	polls    atomic.Int64
	errors   atomic.Int64
	stale    atomic.Int64
	restarts atomic.Int64
	clears   atomic.Int64
}

func (m *fakeMetrics) IncPollsTotal(view string) { m.polls.Add(1) }
func (m *fakeMetrics) IncFetchErrorsTotal(view string, op string) { m.errors.Add(1) }
func (m *fakeMetrics) IncStaleResultsDiscardedTotal(view string) { m.stale.Add(1) }
func (m *fakeMetrics) IncAnchorRestartsTotal(view string) { m.restarts.Add(1) }
func (m *fakeMetrics) IncZeroCountClearsTotal(view string) { m.clears.Add(1) }
func (m *fakeMetrics) SetWindowSize(view string, size int) {}
func (m *fakeMetrics) SetRuntimeCount(view string, count int64) {}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
