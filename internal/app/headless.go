package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/models"
)

// PeekOptions configures the peek command
type PeekOptions struct {
	Target     string
	DeadLetter bool
	Pages      int
	JSON       bool
}

// TailOptions configures the tail command
type TailOptions struct {
	Target     string
	DeadLetter bool
	Both       bool
	JSON       bool
}

// RunPeek browses the target from the oldest message and prints up to Pages pages
func RunPeek(ctx context.Context, opts Options, peek PeekOptions, w io.Writer) error {
	target, err := models.ParseTarget(peek.Target)
	if err != nil {
		return err
	}

	e, err := setup(ctx, opts, true)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.connect(e.cfg.CurrentContext(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer b.Close()

	view := browse.ViewActive
	if peek.DeadLetter {
		view = browse.ViewDeadLetter
	}
	return peekPages(ctx, b.Session(), target, view, peek.Pages, newPrinter(w, peek.JSON))
}

func peekPages(ctx context.Context, session *browse.Session, target models.Target, view browse.View, pages int, out *printer) error {
	if pages < 1 {
		pages = 1
	}
	if err := session.Select(target); err != nil {
		return err
	}
	if err := session.RefreshFromTop(ctx, view); err != nil {
		return err
	}

	var last int64
	for page := 1; ; page++ {
		snap := session.Snapshot(view)
		if len(snap.Messages) == 0 {
			if page == 1 {
				return out.empty(view)
			}
			return nil
		}
		// a page starting at or below what was printed means the anchor wrapped to the oldest message
		if page > 1 && snap.Messages[0].SequenceNumber <= last {
			return nil
		}
		if err := out.page(view, page, snap.Messages); err != nil {
			return err
		}
		last = snap.Messages[len(snap.Messages)-1].SequenceNumber

		if page == pages {
			return nil
		}
		if err := session.NextPage(ctx, view); err != nil {
			return err
		}
	}
}

// RunTail live tails the target and prints every message that enters a window until ctx is done
func RunTail(ctx context.Context, opts Options, tail TailOptions, w io.Writer) error {
	target, err := models.ParseTarget(tail.Target)
	if err != nil {
		return err
	}

	e, err := setup(ctx, opts, true)
	if err != nil {
		return err
	}
	defer e.Close()

	events := make(chan browse.Event, 64)
	listener := func(ev browse.Event) {
		// a dropped update is covered by the next one for the same view
		select {
		case events <- ev:
		default:
		}
	}

	b, err := e.connect(e.cfg.CurrentContext(), listener)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer b.Close()

	e.watchSettings(ctx, b.Session().UpdateSettings)

	views := []browse.View{browse.ViewActive}
	switch {
	case tail.Both:
		views = browse.Views[:]
	case tail.DeadLetter:
		views = []browse.View{browse.ViewDeadLetter}
	}
	return tailViews(ctx, b.Session(), target, views, events, newPrinter(w, tail.JSON))
}

func tailViews(ctx context.Context, session *browse.Session, target models.Target, views []browse.View, events <-chan browse.Event, out *printer) error {
	if err := session.Select(target); err != nil {
		return err
	}
	tailed := make(map[browse.View]bool, len(views))
	for _, v := range views {
		if err := session.StartLive(v); err != nil {
			return err
		}
		tailed[v] = true
	}

	diff := newWindowDiff()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.Kind != browse.EventViewUpdated || !tailed[ev.View] {
				continue
			}
			snap := session.Snapshot(ev.View)
			if err := out.messages(ev.View, diff.entered(ev.View, snap.Messages)); err != nil {
				return err
			}
		}
	}
}

// windowDiff remembers the sequence numbers last seen in each window
type windowDiff struct {
	seen map[browse.View]map[int64]struct{}
}

func newWindowDiff() *windowDiff {
	return &windowDiff{seen: make(map[browse.View]map[int64]struct{})}
}

// entered returns the messages of window that were not in the previous window of view
func (d *windowDiff) entered(view browse.View, window []models.MessageSummary) []models.MessageSummary {
	prev := d.seen[view]
	next := make(map[int64]struct{}, len(window))
	var fresh []models.MessageSummary
	for _, m := range window {
		next[m.SequenceNumber] = struct{}{}
		if _, ok := prev[m.SequenceNumber]; !ok {
			fresh = append(fresh, m)
		}
	}
	d.seen[view] = next
	return fresh
}

// messageRecord is the JSON line printed per message
type messageRecord struct {
	View          string    `json:"view"`
	Page          int       `json:"page,omitempty"`
	Sequence      int64     `json:"sequence"`
	EnqueuedTime  time.Time `json:"enqueued_time"`
	MessageID     string    `json:"message_id,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
