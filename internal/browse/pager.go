package browse

import (
	"context"

	"github.com/shubhamrasal/peekq/internal/models"
)

// Peeker reads messages without locking or consuming them.
// from is a lower bound: returned messages have SequenceNumber >= from (when set),
// at most maxCount of them, in ascending sequence order.
type Peeker interface {
	PeekActive(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error)
	PeekDeadLetter(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error)
}

// FetchMode selects whether an empty page may restart from the oldest message
type FetchMode int

const (
	FetchBrowse FetchMode = iota
	FetchLive
)

// Page is the result of one pager fetch
type Page struct {
	Messages []models.MessageSummary
	// Anchor is the anchor the messages were fetched from; start after a restart
	Anchor    models.Anchor
	Restarted bool
}

// AnchorPager fetches pages of summaries from a Peeker
type AnchorPager struct {
	peeker Peeker
}

func NewAnchorPager(peeker Peeker) *AnchorPager {
	return &AnchorPager{peeker: peeker}
}

func (p *AnchorPager) peek(ctx context.Context, target models.Target, sub models.SubQueue, anchor models.Anchor, max int) ([]models.MessageSummary, error) {
	if sub == models.SubQueueDeadLetter {
		return p.peeker.PeekDeadLetter(ctx, target, max, anchor)
	}
	return p.peeker.PeekActive(ctx, target, max, anchor)
}

// FetchPage peeks one page from anchor. In browse mode an empty page from a set anchor
// is retried once from the start, since the anchor may point past retained messages.
// Live fetches never restart.
func (p *AnchorPager) FetchPage(ctx context.Context, target models.Target, sub models.SubQueue, anchor models.Anchor, pageSize int, mode FetchMode) (Page, error) {
	msgs, err := p.peek(ctx, target, sub, anchor, pageSize)
	if err != nil {
		return Page{Anchor: anchor}, err
	}
	if mode == FetchBrowse && len(msgs) == 0 && !anchor.IsStart() {
		msgs, err = p.peek(ctx, target, sub, models.StartAnchor(), pageSize)
		if err != nil {
			return Page{Anchor: models.StartAnchor(), Restarted: true}, err
		}
		return Page{Messages: msgs, Anchor: models.StartAnchor(), Restarted: true}, nil
	}
	return Page{Messages: msgs, Anchor: anchor}, nil
}

// Accumulate browses from anchor and keeps peeking consecutive pages until limit
// messages are collected or the broker returns a short or empty page.
// The first page is always fetched and follows the browse restart rule.
func (p *AnchorPager) Accumulate(ctx context.Context, target models.Target, sub models.SubQueue, anchor models.Anchor, pageSize, limit int) (Page, error) {
	first, err := p.FetchPage(ctx, target, sub, anchor, pageSize, FetchBrowse)
	if err != nil {
		return first, err
	}
	if len(first.Messages) < pageSize {
		return first, nil
	}

	collected := first.Messages
	next := NextAnchor(first.Anchor, first.Messages)
	for len(collected) < limit {
		if err := ctx.Err(); err != nil {
			return Page{Anchor: first.Anchor, Restarted: first.Restarted}, err
		}
		msgs, err := p.peek(ctx, target, sub, next, pageSize)
		if err != nil {
			return Page{Anchor: first.Anchor, Restarted: first.Restarted}, err
		}
		if len(msgs) == 0 {
			break
		}
		collected = append(collected, msgs...)
		next = NextAnchor(next, msgs)
		if len(msgs) < pageSize {
			break
		}
	}
	return Page{Messages: collected, Anchor: first.Anchor, Restarted: first.Restarted}, nil
}

// NextAnchor returns one past the highest sequence number in page,
// or current when the page is empty.
func NextAnchor(current models.Anchor, page []models.MessageSummary) models.Anchor {
	if len(page) == 0 {
		return current
	}
	max := page[0].SequenceNumber
	for _, m := range page[1:] {
		if m.SequenceNumber > max {
			max = m.SequenceNumber
		}
	}
	return models.After(max)
}
