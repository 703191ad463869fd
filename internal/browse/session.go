package browse

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shubhamrasal/peekq/internal/metrics"
	"github.com/shubhamrasal/peekq/internal/models"
)

// Option configures a Session
type Option func(*Session)

func WithSettings(settings Settings) Option {
	return func(s *Session) {
		s.settings = settings
	}
}

func WithListener(listener Listener) Option {
	return func(s *Session) {
		s.listener = listener
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithMetrics(service metrics.Service) Option {
	return func(s *Session) {
		if service != nil {
			s.metrics = service
		}
	}
}

// Session browses one target at a time. It owns a live tail controller per view
// and the counts monitor, and serialises every state change behind one mutex.
type Session struct {
	id       string
	pager    *AnchorPager
	monitor  *CountsMonitor
	metrics  metrics.Service
	logger   zerolog.Logger
	listener Listener

	mu           sync.Mutex
	settings     Settings
	target       models.Target
	counts       models.Counts
	epoch        uint64 // bumped on selection change and dispose
	disposed     bool
	views        [len(Views)]*LiveTailController
	countsCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewSession creates a session with no target selected
func NewSession(peeker Peeker, source CountsSource, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		pager:    NewAnchorPager(peeker),
		monitor:  NewCountsMonitor(source),
		metrics:  metrics.NewMetricsService(false, nil),
		logger:   log.Logger,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.settings = s.settings.normalized()
	s.logger = s.logger.With().Str("session", s.id).Logger()
	for _, v := range Views {
		s.views[v] = newLiveTailController(s, v)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Target() models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Session) Counts() models.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Snapshot returns a copy of the view's state
func (s *Session) Snapshot(view View) ViewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[view].state.snapshot(view)
}

// Select switches the session to target. All loops are cancelled, both views and the
// counts are reset, and counts polling starts. The zero Target deselects.
func (s *Session) Select(target models.Target) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.epoch++
	for _, c := range s.views {
		c.stopLocked()
		c.state = ViewState{}
	}
	s.stopCountsLocked()
	s.target = target
	s.counts = models.Counts{}
	if !target.IsZero() {
		s.startCountsLocked()
	}
	s.mu.Unlock()

	if target.IsZero() {
		s.logger.Info().Msg("selection cleared")
	} else {
		s.logger.Info().Str("target", target.String()).Msg("target selected")
	}
	for _, v := range Views {
		s.metrics.SetWindowSize(v.String(), 0)
	}
	s.emit(Event{Kind: EventCountsUpdated})
	s.emitUpdated(ViewDeadLetter)
	return nil
}

// Refresh re-fetches the view at its current anchor. An idle view starts from the top.
func (s *Session) Refresh(ctx context.Context, view View) error {
	return s.refreshView(ctx, view, func(st *ViewState) (models.Anchor, bool) {
		if st.mode == ModeIdle {
			st.anchor = models.StartAnchor()
			st.history = nil
		}
		return st.anchor, true
	}, nil)
}

// RefreshFromTop refreshes the counts, resets the anchor and history, then refreshes
func (s *Session) RefreshFromTop(ctx context.Context, view View) error {
	if err := s.checkBrowsable(view); err != nil {
		return err
	}
	// a counts failure is already surfaced as an event; browsing goes on without counts
	_ = s.RefreshCounts(ctx)

	return s.refreshView(ctx, view, func(st *ViewState) (models.Anchor, bool) {
		st.anchor = models.StartAnchor()
		st.history = nil
		return st.anchor, true
	}, nil)
}

// NextPage advances past the highest sequence displayed and remembers the current anchor
func (s *Session) NextPage(ctx context.Context, view View) error {
	var prev models.Anchor
	return s.refreshView(ctx, view, func(st *ViewState) (models.Anchor, bool) {
		if len(st.messages) == 0 {
			return st.anchor, false
		}
		prev = st.anchor
		return NextAnchor(st.anchor, st.messages), true
	}, func(st *ViewState) {
		st.history = append(st.history, prev)
	})
}

// PrevPage goes back to the last remembered anchor. It is a no-op on empty history.
func (s *Session) PrevPage(ctx context.Context, view View) error {
	return s.refreshView(ctx, view, func(st *ViewState) (models.Anchor, bool) {
		if len(st.history) == 0 {
			return st.anchor, false
		}
		return st.history[len(st.history)-1], true
	}, func(st *ViewState) {
		st.history = st.history[:len(st.history)-1]
	})
}

func (s *Session) checkBrowsable(view View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkBrowsableLocked(s.views[view])
}

func (s *Session) checkBrowsableLocked(c *LiveTailController) error {
	if err := s.checkTargetLocked(); err != nil {
		return err
	}
	if c.state.mode == ModeLiveTailing {
		return ErrViewLive
	}
	if c.state.refreshing {
		return ErrRefreshInProgress
	}
	return nil
}

func (s *Session) checkTargetLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.target.IsZero() {
		return ErrNoTarget
	}
	return nil
}

// refreshView runs one manual browse fetch. pick chooses the anchor under the lock and
// may reject the refresh; commit adjusts history once the page has been applied.
func (s *Session) refreshView(ctx context.Context, view View, pick func(*ViewState) (models.Anchor, bool), commit func(*ViewState)) error {
	c := s.views[view]

	s.mu.Lock()
	if err := s.checkBrowsableLocked(c); err != nil {
		s.mu.Unlock()
		return err
	}
	anchor, ok := pick(&c.state)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	clears := c.state.clears
	c.state.refreshing = true
	epoch := s.epoch
	target := s.target
	settings := s.settings
	deadLetterCount := s.counts.DeadLetter
	s.mu.Unlock()

	s.emit(Event{Kind: EventViewUpdated, View: view})

	if err := c.acquire(ctx); err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			c.state.refreshing = false
		}
		s.mu.Unlock()
		s.emit(Event{Kind: EventViewUpdated, View: view})
		return err
	}
	defer c.release()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	c.state.fetching = true
	s.mu.Unlock()

	var page Page
	var err error
	if view == ViewDeadLetter && settings.DeadLetterPages > 1 {
		page, err = s.pager.Accumulate(ctx, target, view.SubQueue(), anchor, settings.PageSize, settings.deadLetterTarget(deadLetterCount))
	} else {
		page, err = s.pager.FetchPage(ctx, target, view.SubQueue(), anchor, settings.PageSize, FetchBrowse)
	}
	s.metrics.IncPollsTotal(view.String())

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.discarded(view, "selection changed")
		return nil
	}
	c.state.fetching = false
	c.state.refreshing = false
	// a clear may land before this refresh held the slot, when pendingClear cannot be set
	pending := c.state.pendingClear || c.state.clears != clears
	c.state.pendingClear = false

	switch {
	case c.state.mode == ModeLiveTailing:
		s.mu.Unlock()
		s.discarded(view, "live tail started")
		s.emit(Event{Kind: EventViewUpdated, View: view})
		return nil
	case err != nil:
		ferr := &FetchError{View: view, Op: opPeek, Err: err}
		c.state.lastErr = ferr
		s.mu.Unlock()
		s.warn(target, ferr)
		s.emit(Event{Kind: EventViewUpdated, View: view})
		return ferr
	case pending:
		c.state.clear()
		s.mu.Unlock()
		s.discarded(view, "view cleared while fetching")
		s.emit(Event{Kind: EventViewUpdated, View: view})
		return nil
	}

	c.state.anchor = page.Anchor
	c.state.messages = MergeWindow(nil, page.Messages, settings.windowSize(view))
	c.state.mode = ModeBrowsing
	c.state.lastErr = nil
	if commit != nil {
		commit(&c.state)
	}
	s.reconcileLocked()
	size := len(c.state.messages)
	s.mu.Unlock()

	if page.Restarted {
		s.metrics.IncAnchorRestartsTotal(view.String())
		s.logger.Debug().
			Str("target", target.String()).
			Stringer("view", view).
			Stringer("anchor", anchor).
			Msg("anchor ran past the end, restarted from the oldest message")
	}
	s.metrics.SetWindowSize(view.String(), size)
	s.emitUpdated(view)
	return nil
}

// StartLive switches the view to live tailing. A running loop is restarted.
func (s *Session) StartLive(view View) error {
	s.mu.Lock()
	if err := s.checkTargetLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	c := s.views[view]
	c.startLocked()
	target := s.target
	anchor := c.state.anchor
	s.mu.Unlock()

	s.logger.Info().Str("target", target.String()).Stringer("view", view).Stringer("anchor", anchor).Msg("live tail started")
	s.emit(Event{Kind: EventViewUpdated, View: view})
	return nil
}

// StopLive cancels the view's loop; the displayed window is kept
func (s *Session) StopLive(view View) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	c := s.views[view]
	wasLive := c.state.mode == ModeLiveTailing
	c.stopLocked()
	target := s.target
	s.mu.Unlock()

	if wasLive {
		s.logger.Info().Str("target", target.String()).Stringer("view", view).Msg("live tail stopped")
		s.emit(Event{Kind: EventViewUpdated, View: view})
	}
	return nil
}

// ToggleLive flips the view between live tailing and idle
func (s *Session) ToggleLive(view View) error {
	s.mu.Lock()
	if err := s.checkTargetLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	c := s.views[view]
	live := c.state.mode == ModeLiveTailing
	if live {
		c.stopLocked()
	} else {
		c.startLocked()
	}
	target := s.target
	anchor := c.state.anchor
	s.mu.Unlock()

	if live {
		s.logger.Info().Str("target", target.String()).Stringer("view", view).Msg("live tail stopped")
	} else {
		s.logger.Info().Str("target", target.String()).Stringer("view", view).Stringer("anchor", anchor).Msg("live tail started")
	}
	s.emit(Event{Kind: EventViewUpdated, View: view})
	return nil
}

// ToggleLiveBoth stops both views if either is live, otherwise starts both
func (s *Session) ToggleLiveBoth() error {
	s.mu.Lock()
	if err := s.checkTargetLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	anyLive := false
	for _, c := range s.views {
		if c.state.mode == ModeLiveTailing {
			anyLive = true
		}
	}
	for _, c := range s.views {
		if anyLive {
			c.stopLocked()
		} else {
			c.startLocked()
		}
	}
	target := s.target
	s.mu.Unlock()

	s.logger.Info().Str("target", target.String()).Bool("live", !anyLive).Msg("live tail toggled on both views")
	s.emitUpdated(ViewDeadLetter)
	return nil
}

// RefreshCounts fetches runtime counts once and clears views reported empty
func (s *Session) RefreshCounts(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkTargetLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	s.mu.Unlock()

	return s.refreshCounts(ctx, epoch)
}

func (s *Session) refreshCounts(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	target := s.target
	s.mu.Unlock()

	counts, err := s.monitor.Refresh(ctx, target)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return ctx.Err()
	}
	if err != nil {
		s.counts = models.Counts{}
		s.mu.Unlock()

		ferr := &FetchError{Op: opCounts, Err: err}
		for _, v := range Views {
			s.metrics.IncFetchErrorsTotal(v.String(), metrics.FetchOpCounts)
		}
		s.logger.Warn().Err(err).Str("target", target.String()).Msg("runtime counts unavailable")
		s.emit(Event{Kind: EventCountsUpdated, Err: ferr})
		return ferr
	}

	s.counts = counts
	var cleared []View
	for _, v := range EmptiedViews(counts) {
		st := &s.views[v].state
		if !st.isEmpty() {
			cleared = append(cleared, v)
		}
		st.clear()
	}
	s.mu.Unlock()

	for _, v := range Views {
		if n := countFor(counts, v); n != nil {
			s.metrics.SetRuntimeCount(v.String(), *n)
		}
	}
	for _, v := range cleared {
		s.metrics.IncZeroCountClearsTotal(v.String())
		s.metrics.SetWindowSize(v.String(), 0)
		s.logger.Info().Str("target", target.String()).Stringer("view", v).Msg("view cleared, broker reports no messages")
	}
	s.emit(Event{Kind: EventCountsUpdated})
	for _, v := range cleared {
		s.emit(Event{Kind: EventViewUpdated, View: v})
	}
	return nil
}

func (s *Session) startCountsLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.countsCancel = cancel
	epoch := s.epoch

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			_ = s.refreshCounts(ctx, epoch)
			if !sleepCtx(ctx, s.countsInterval()) {
				return
			}
		}
	}()
}

func (s *Session) stopCountsLocked() {
	if s.countsCancel != nil {
		s.countsCancel()
		s.countsCancel = nil
	}
}

// UpdateSettings applies new paging and polling settings to subsequent fetches
func (s *Session) UpdateSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings.normalized()
	s.mu.Unlock()

	s.logger.Debug().
		Int("page_size", settings.PageSize).
		Dur("live_interval", settings.LiveInterval).
		Dur("counts_interval", settings.CountsInterval).
		Msg("browse settings updated")
}

// Dispose cancels every loop. It never blocks and is safe to call more than once.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.epoch++
	for _, c := range s.views {
		c.stopLocked()
	}
	s.stopCountsLocked()
	s.mu.Unlock()

	s.logger.Debug().Msg("session disposed")
}

// Wait blocks until every loop started by the session has exited or ctx is done
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) liveInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.LiveInterval
}

func (s *Session) countsInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.CountsInterval
}

// reconcileLocked drops active entries that are shown as dead-lettered
func (s *Session) reconcileLocked() {
	active := &s.views[ViewActive].state
	active.messages = Reconcile(active.messages, s.views[ViewDeadLetter].state.messages)
}

func (s *Session) warn(target models.Target, ferr *FetchError) {
	s.metrics.IncFetchErrorsTotal(ferr.View.String(), metrics.FetchOpPeek)
	s.logger.Warn().Err(ferr.Err).Str("target", target.String()).Stringer("view", ferr.View).Msg("peek failed")
	s.emit(Event{Kind: EventWarning, View: ferr.View, Err: ferr})
}

func (s *Session) discarded(view View, reason string) {
	s.metrics.IncStaleResultsDiscardedTotal(view.String())
	s.logger.Debug().Stringer("view", view).Str("reason", reason).Msg("fetch result discarded")
}

func (s *Session) emit(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

// emitUpdated notifies a view update. Dead-letter updates can change the active view through reconciliation.
func (s *Session) emitUpdated(view View) {
	if view == ViewDeadLetter {
		s.emit(Event{Kind: EventViewUpdated, View: ViewActive})
	}
	s.emit(Event{Kind: EventViewUpdated, View: view})
}
