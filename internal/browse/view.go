package browse

import (
	"slices"

	"github.com/shubhamrasal/peekq/internal/models"
)

// View identifies one of the two windows a session maintains
type View int

const (
	ViewActive View = iota
	ViewDeadLetter
)

// Views lists every view in display order
var Views = [...]View{ViewActive, ViewDeadLetter}

func (v View) String() string {
	return v.SubQueue().String()
}

// SubQueue returns the broker sub-queue the view peeks
func (v View) SubQueue() models.SubQueue {
	if v == ViewDeadLetter {
		return models.SubQueueDeadLetter
	}
	return models.SubQueueActive
}

// Mode is the state of a view's tail controller
type Mode int

const (
	ModeIdle Mode = iota
	ModeBrowsing
	ModeLiveTailing
)

func (m Mode) String() string {
	switch m {
	case ModeBrowsing:
		return "browsing"
	case ModeLiveTailing:
		return "live"
	default:
		return "idle"
	}
}

// ViewState is the mutable state of one view. All fields are guarded by the session mutex.
type ViewState struct {
	messages     []models.MessageSummary
	anchor       models.Anchor
	history      []models.Anchor
	mode         Mode
	pendingClear bool
	fetching     bool   // a fetch slot holder is waiting on the broker
	refreshing   bool   // a manual refresh is running
	clears       uint64 // bumped by every clear
	lastErr      error
}

// clear drops messages, anchor and history; an in-flight fetch will discard its page
func (st *ViewState) clear() {
	st.messages = nil
	st.anchor = models.StartAnchor()
	st.history = nil
	st.clears++
	if st.fetching {
		st.pendingClear = true
	}
}

func (st *ViewState) isEmpty() bool {
	return len(st.messages) == 0 && len(st.history) == 0 && st.anchor.IsStart()
}

// tailAnchor is one past the highest sequence displayed, or start when empty
func (st *ViewState) tailAnchor() models.Anchor {
	return NextAnchor(models.StartAnchor(), st.messages)
}

// ViewSnapshot is a copy of a view's observable state
type ViewSnapshot struct {
	View         View
	Messages     []models.MessageSummary
	Anchor       models.Anchor
	HistoryDepth int
	Mode         Mode
	IsLive       bool
	IsRefreshing bool
	LastErr      error
}

func (st *ViewState) snapshot(v View) ViewSnapshot {
	return ViewSnapshot{
		View:         v,
		Messages:     slices.Clone(st.messages),
		Anchor:       st.anchor,
		HistoryDepth: len(st.history),
		Mode:         st.mode,
		IsLive:       st.mode == ModeLiveTailing,
		IsRefreshing: st.fetching || st.refreshing,
		LastErr:      st.lastErr,
	}
}
