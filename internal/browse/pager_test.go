package browse

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/shubhamrasal/peekq/internal/models"
)

var ordersQueue = models.QueueTarget("ORDERS")

func TestNextAnchor(t *testing.T) {
	seq, ok := NextAnchor(models.StartAnchor(), msgs(5, 9, 7)).Sequence()
	if !ok || seq != 10 {
		t.Fatalf("got %d,%v want 10", seq, ok)
	}

	current := models.AnchorAt(42)
	if got := NextAnchor(current, nil); got != current {
		t.Fatalf("empty page moved anchor to %s", got)
	}

	seq, _ = NextAnchor(current, msgs(math.MaxInt64)).Sequence()
	if seq != math.MaxInt64 {
		t.Fatalf("expected saturation, got %d", seq)
	}
}

func TestFetchPageBrowseRestartsFromStart(t *testing.T) {
	broker := &fakeBroker{active: msgs(1)}
	pager := NewAnchorPager(broker)

	page, err := pager.FetchPage(context.Background(), ordersQueue, models.SubQueueActive, models.AnchorAt(1000), 50, FetchBrowse)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !page.Restarted || !page.Anchor.IsStart() {
		t.Fatalf("expected restart from start, got %+v", page)
	}
	if !slices.Equal(seqsOf(page.Messages), []int64{1}) {
		t.Fatalf("got %v", seqsOf(page.Messages))
	}
	if n := broker.callCount(); n != 2 {
		t.Fatalf("expected exactly one retry, got %d peeks", n)
	}
}

func TestFetchPageLiveDoesNotRestart(t *testing.T) {
	broker := &fakeBroker{active: msgs(1)}
	pager := NewAnchorPager(broker)

	anchor := models.AnchorAt(1000)
	page, err := pager.FetchPage(context.Background(), ordersQueue, models.SubQueueActive, anchor, 50, FetchLive)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Restarted || len(page.Messages) != 0 || page.Anchor != anchor {
		t.Fatalf("live fetch restarted: %+v", page)
	}
	if n := broker.callCount(); n != 1 {
		t.Fatalf("expected a single peek, got %d", n)
	}
}

func TestFetchPageEmptyFromStartIsNotRetried(t *testing.T) {
	broker := &fakeBroker{}
	pager := NewAnchorPager(broker)

	page, err := pager.FetchPage(context.Background(), ordersQueue, models.SubQueueDeadLetter, models.StartAnchor(), 50, FetchBrowse)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Restarted || broker.callCount() != 1 {
		t.Fatalf("unexpected retry: %+v after %d peeks", page, broker.callCount())
	}
}

func TestAccumulate(t *testing.T) {
	cases := []struct {
		name      string
		available int64
		limit     int
		wantLen   int
		wantPeeks int
	}{
		{name: "stops at short page", available: 23, limit: 100, wantLen: 23, wantPeeks: 3},
		{name: "stops at limit", available: 100, limit: 25, wantLen: 30, wantPeeks: 3},
		{name: "stops at empty page", available: 20, limit: 100, wantLen: 20, wantPeeks: 3},
		{name: "single short page", available: 4, limit: 100, wantLen: 4, wantPeeks: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broker := &fakeBroker{dead: seqRange(1, tc.available)}
			pager := NewAnchorPager(broker)

			page, err := pager.Accumulate(context.Background(), ordersQueue, models.SubQueueDeadLetter, models.StartAnchor(), 10, tc.limit)
			if err != nil {
				t.Fatalf("accumulate: %v", err)
			}
			if len(page.Messages) != tc.wantLen {
				t.Fatalf("collected %d, want %d", len(page.Messages), tc.wantLen)
			}
			if n := broker.callCount(); n != tc.wantPeeks {
				t.Fatalf("peeks = %d, want %d", n, tc.wantPeeks)
			}
			if !slices.Equal(seqsOf(page.Messages), seqsOf(seqRange(1, int64(tc.wantLen)))) {
				t.Fatalf("messages out of order or duplicated: %v", seqsOf(page.Messages))
			}
		})
	}
}

func TestDeadLetterTarget(t *testing.T) {
	s := Settings{PageSize: 50, DeadLetterPages: 10}
	var small, large int64 = 120, 5000
	if got := s.deadLetterTarget(nil); got != 50 {
		t.Fatalf("unknown count: got %d", got)
	}
	if got := s.deadLetterTarget(&small); got != 120 {
		t.Fatalf("small count: got %d", got)
	}
	if got := s.deadLetterTarget(&large); got != 500 {
		t.Fatalf("large count: got %d", got)
	}
}
