package browse

import (
	"context"
	"time"
)

// LiveTailController owns one view's state and its polling loop.
// Its state is guarded by the session mutex; slot admits one broker fetch at a time.
type LiveTailController struct {
	sess  *Session
	view  View
	state ViewState

	slot   chan struct{}
	cancel context.CancelFunc
	done   chan struct{} // closed when the most recent loop exits
}

func newLiveTailController(sess *Session, view View) *LiveTailController {
	return &LiveTailController{
		sess: sess,
		view: view,
		slot: make(chan struct{}, 1),
	}
}

func (c *LiveTailController) acquire(ctx context.Context) error {
	select {
	case c.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *LiveTailController) release() {
	<-c.slot
}

// startLocked stops any running loop and starts a new one from the tail of the window.
// The caller holds the session mutex.
func (c *LiveTailController) startLocked() {
	c.stopLocked()

	c.state.mode = ModeLiveTailing
	c.state.anchor = c.state.tailAnchor()
	c.state.history = nil
	c.state.lastErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	prev := c.done
	c.cancel = cancel
	c.done = done

	c.sess.wg.Add(1)
	go c.run(ctx, c.sess.epoch, prev, done)
}

// stopLocked signals the loop to stop without waiting for it.
// The caller holds the session mutex.
func (c *LiveTailController) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state.mode == ModeLiveTailing {
		c.state.mode = ModeIdle
	}
}

func (c *LiveTailController) run(ctx context.Context, epoch uint64, prev <-chan struct{}, done chan<- struct{}) {
	s := c.sess
	defer s.wg.Done()
	defer close(done)

	// the previous loop may still be waiting on the broker
	if prev != nil {
		<-prev
	}

	for {
		if err := c.acquire(ctx); err != nil {
			return
		}
		if !c.poll(ctx, epoch) {
			return
		}
		if !sleepCtx(ctx, s.liveInterval()) {
			return
		}
	}
}

// poll runs one loop iteration while holding the fetch slot.
// It reports false once the loop has been cancelled.
func (c *LiveTailController) poll(ctx context.Context, epoch uint64) bool {
	s := c.sess
	defer c.release()

	s.mu.Lock()
	if ctx.Err() != nil || s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	target := s.target
	anchor := c.state.anchor
	settings := s.settings
	c.state.fetching = true
	s.mu.Unlock()

	page, err := s.pager.FetchPage(ctx, target, c.view.SubQueue(), anchor, settings.PageSize, FetchLive)
	s.metrics.IncPollsTotal(c.view.String())

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.discarded(c.view, "selection changed")
		return false
	}
	c.state.fetching = false
	pending := c.state.pendingClear
	c.state.pendingClear = false
	if ctx.Err() != nil {
		s.mu.Unlock()
		s.discarded(c.view, "live tail stopped")
		return false
	}

	var ferr *FetchError
	switch {
	case err != nil:
		ferr = &FetchError{View: c.view, Op: opPeek, Err: err}
		c.state.lastErr = ferr
	case pending:
		c.state.clear()
	default:
		c.state.lastErr = nil
		c.state.anchor = NextAnchor(anchor, page.Messages)
		c.state.messages = MergeWindow(c.state.messages, page.Messages, settings.PageSize)
		s.reconcileLocked()
	}
	size := len(c.state.messages)
	s.mu.Unlock()

	switch {
	case ferr != nil:
		s.warn(target, ferr)
	case pending:
		s.discarded(c.view, "view cleared while fetching")
	}
	s.metrics.SetWindowSize(c.view.String(), size)
	s.emitUpdated(c.view)
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
