package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/models"
)

const (
	detailTimeout = 10 * time.Second
	historyWindow = 30 * time.Minute
)

// BrowseView shows the active and dead-letter windows of the selected target
type BrowseView struct {
	ui         *UIManager
	flex       *tview.Flex
	status     *tview.TextView
	tables     [len(browse.Views)]*tview.Table
	rows       [len(browse.Views)][]models.MessageSummary
	detailView *tview.TextView
	trend      *TrendView
	focused    browse.View
	target     models.Target
	warning    string

	// cancel aborts the session calls made for the current target
	cancel context.CancelFunc
	ctx    context.Context
}

// NewBrowseView creates a new browse view
func NewBrowseView(ui *UIManager) *BrowseView {
	view := &BrowseView{
		ui:    ui,
		trend: NewTrendView(),
	}
	view.ctx, view.cancel = context.WithCancel(context.Background())

	view.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	for _, v := range browse.Views {
		table := tview.NewTable().
			SetBorders(false).
			SetSelectable(true, false).
			SetFixed(1, 0)
		table.SetBorder(true).
			SetTitleAlign(tview.AlignCenter)
		view.tables[v] = table
	}

	view.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	view.detailView.SetBorder(true).
		SetTitle(" Message Detail ").
		SetTitleAlign(tview.AlignCenter)
	view.detailView.SetText("[gray]Select a message to view details[white]")

	windows := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(view.tables[browse.ViewActive], 0, 1, true).
		AddItem(view.tables[browse.ViewDeadLetter], 0, 1, false)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(view.detailView, 0, 3, false).
		AddItem(view.trend.GetPrimitive(), 0, 2, false)

	view.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view.status, 2, 0, false).
		AddItem(windows, 0, 3, true).
		AddItem(bottom, 0, 2, false)

	view.setupKeybindings()
	for _, v := range browse.Views {
		view.renderTable(v, browse.ViewSnapshot{View: v})
	}

	return view
}

func (v *BrowseView) setupHeaders(table *tview.Table) {
	headers := []string{"SEQ", "ENQUEUED", "SUBJECT", "MESSAGE ID", "CORRELATION ID"}
	for i, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, i, cell)
	}
}

func (v *BrowseView) setupKeybindings() {
	for _, view := range browse.Views {
		v.tables[view].SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			focused := v.focused
			switch event.Key() {
			case tcell.KeyEnter:
				v.showDetail()
				return nil
			case tcell.KeyEsc:
				v.back()
				return nil
			case tcell.KeyTab, tcell.KeyBacktab:
				v.switchFocus()
				return nil
			case tcell.KeyRune:
				switch event.Rune() {
				case 'r':
					v.run("refresh", func(ctx context.Context, s *browse.Session) error {
						return s.RefreshFromTop(ctx, focused)
					})
					return nil
				case 'n':
					v.run("next page", func(ctx context.Context, s *browse.Session) error {
						return s.NextPage(ctx, focused)
					})
					return nil
				case 'p':
					v.run("previous page", func(ctx context.Context, s *browse.Session) error {
						return s.PrevPage(ctx, focused)
					})
					return nil
				case 'l':
					v.report("live tail", v.session().ToggleLive(focused))
					return nil
				case 'L':
					v.report("live tail", v.session().ToggleLiveBoth())
					return nil
				}
			}
			return event
		})
	}

	v.detailView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyTab:
			v.focusTable()
			return nil
		}
		return event
	})
}

func (v *BrowseView) session() *browse.Session {
	return v.ui.backend.Session()
}

// SetTarget selects target and loads the first page of both views
func (v *BrowseView) SetTarget(target models.Target) {
	v.cancel()
	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.target = target
	v.warning = ""
	v.focused = browse.ViewActive
	v.detailView.SetText("[gray]Select a message to view details[white]")
	v.trend.Reset()

	if err := v.session().Select(target); err != nil {
		v.ui.ShowError(fmt.Sprintf("Failed to select %s: %v", target, err))
		return
	}
	for _, view := range browse.Views {
		v.renderTable(view, v.session().Snapshot(view))
		v.run("refresh", func(ctx context.Context, s *browse.Session) error {
			return s.RefreshFromTop(ctx, view)
		})
	}
	v.loadHistory()
	v.focusTable()
}

// back deselects the target and returns to the entity list
func (v *BrowseView) back() {
	v.cancel()
	v.target = models.Target{}
	if err := v.session().Select(models.Target{}); err != nil {
		v.ui.logger.Debug().Err(err).Msg("deselect failed")
	}
	v.ui.ShowEntityList()
	v.ui.updateHeader()
}

// run calls a blocking session operation off the UI goroutine
func (v *BrowseView) run(what string, op func(ctx context.Context, s *browse.Session) error) {
	ctx := v.ctx
	session := v.session()
	go func() {
		err := op(ctx, session)
		if err == nil || ctx.Err() != nil {
			return
		}
		v.ui.app.QueueUpdateDraw(func() {
			v.report(what, err)
		})
	}()
}

// report shows why an operation was rejected. Fetch failures arrive as warning events instead.
func (v *BrowseView) report(what string, err error) {
	var fetchErr *browse.FetchError
	switch {
	case err == nil, errors.As(err, &fetchErr):
		return
	case errors.Is(err, browse.ErrViewLive):
		v.warning = "view is live tailing, press l to stop it first"
	case errors.Is(err, browse.ErrRefreshInProgress):
		v.warning = "a refresh is already running"
	case errors.Is(err, browse.ErrNoTarget), errors.Is(err, browse.ErrDisposed):
		v.warning = fmt.Sprintf("%s: %v", what, err)
	default:
		v.ui.ShowError(fmt.Sprintf("%s failed: %v", what, err))
		return
	}
	v.renderStatus()
}

// loadHistory seeds the trend graph from the metrics plugin
func (v *BrowseView) loadHistory() {
	ctx := v.ctx
	target := v.target
	backend := v.ui.backend
	go func() {
		ctx, cancel := context.WithTimeout(ctx, detailTimeout)
		defer cancel()
		history, err := backend.ActiveHistory(ctx, target, historyWindow)
		if err == nil && len(history) == 0 {
			return
		}

		v.ui.app.QueueUpdateDraw(func() {
			if v.target != target {
				return
			}
			if err != nil {
				v.trend.SetNote("history unavailable: " + err.Error())
				return
			}
			v.trend.Seed(history)
		})
	}()
}

// OnEvent renders a session event; it runs on the UI goroutine
func (v *BrowseView) OnEvent(ev browse.Event) {
	if v.target.IsZero() {
		return
	}
	switch ev.Kind {
	case browse.EventViewUpdated:
		snap := v.session().Snapshot(ev.View)
		if snap.LastErr == nil && v.warning != "" && !snap.IsRefreshing {
			v.warning = ""
		}
		v.renderTable(ev.View, snap)
		v.renderStatus()
	case browse.EventCountsUpdated:
		if ev.Err == nil {
			if n := v.session().Counts().Active; n != nil {
				v.trend.Append(float64(*n))
			}
		}
		v.renderStatus()
	case browse.EventWarning:
		v.warning = ev.Err.Error()
		v.renderStatus()
	}
}

func (v *BrowseView) renderTable(view browse.View, snap browse.ViewSnapshot) {
	table := v.tables[view]
	row, _ := table.GetSelection()

	table.Clear()
	v.setupHeaders(table)
	v.rows[view] = snap.Messages

	for i, msg := range snap.Messages {
		r := i + 1
		table.SetCell(r, 0, tview.NewTableCell(fmt.Sprintf("%d", msg.SequenceNumber)))
		table.SetCell(r, 1, tview.NewTableCell(formatTime(msg.EnqueuedTime)))
		table.SetCell(r, 2, tview.NewTableCell(tview.Escape(truncate(msg.Subject, 40))))
		table.SetCell(r, 3, tview.NewTableCell(tview.Escape(truncate(msg.MessageID, 24))))
		table.SetCell(r, 4, tview.NewTableCell(tview.Escape(truncate(msg.CorrelationID, 24))))
	}

	switch {
	case len(snap.Messages) == 0:
	case snap.IsLive:
		// follow the tail
		table.Select(len(snap.Messages), 0)
	case row < 1:
		table.Select(1, 0)
	case row > len(snap.Messages):
		table.Select(len(snap.Messages), 0)
	}

	table.SetTitle(v.tableTitle(view, snap))
}

func (v *BrowseView) tableTitle(view browse.View, snap browse.ViewSnapshot) string {
	name := "Active"
	if view == browse.ViewDeadLetter {
		name = "Dead-letter"
	}

	var flags []string
	if snap.IsLive {
		flags = append(flags, "[green]LIVE[white]")
	} else if snap.Mode == browse.ModeBrowsing {
		flags = append(flags, fmt.Sprintf("page %d", snap.HistoryDepth+1))
	}
	if snap.IsRefreshing {
		flags = append(flags, "[yellow]loading[white]")
	}
	if snap.LastErr != nil {
		flags = append(flags, "[red]error[white]")
	}

	title := fmt.Sprintf(" %s (%d) ", name, len(snap.Messages))
	if len(flags) > 0 {
		title += strings.Join(flags, " ") + " "
	}
	return title
}

func (v *BrowseView) renderStatus() {
	if v.target.IsZero() {
		v.status.SetText("")
		return
	}

	counts := v.session().Counts()
	line := fmt.Sprintf(" [yellow]%s[white]   Active: [cyan]%s[white]   Dead-letter: [cyan]%s[white]   Focus: %s",
		tview.Escape(v.target.String()),
		formatOptionalCount(counts.Active),
		formatOptionalCount(counts.DeadLetter),
		v.focused)
	if v.warning != "" {
		line += "\n [red]" + tview.Escape(v.warning) + "[white]"
	}
	v.status.SetText(line)
	v.updateFooter()
}

func (v *BrowseView) updateFooter() {
	if v.ui.currentPage != pageBrowse {
		return
	}
	v.ui.footer.Update("r: Refresh  n/p: Next/Prev page  l: Live  L: Live both  Tab: Switch  Enter: Detail  Esc: Back")
}

func (v *BrowseView) switchFocus() {
	if v.focused == browse.ViewActive {
		v.focused = browse.ViewDeadLetter
	} else {
		v.focused = browse.ViewActive
	}
	v.focusTable()
	v.renderStatus()
}

func (v *BrowseView) focusTable() {
	for _, view := range browse.Views {
		if view == v.focused {
			v.tables[view].SetBorderColor(tcell.ColorGreen)
		} else {
			v.tables[view].SetBorderColor(tcell.ColorGray)
		}
	}
	v.detailView.SetBorderColor(tcell.ColorGray)
	v.ui.app.SetFocus(v.tables[v.focused])
	v.updateFooter()
}

func (v *BrowseView) showDetail() {
	view := v.focused
	row, _ := v.tables[view].GetSelection()
	rows := v.rows[view]
	if row <= 0 || row > len(rows) {
		return
	}
	msg := rows[row-1]
	target := v.target
	backend := v.ui.backend
	ctx := v.ctx

	v.detailView.SetText(fmt.Sprintf("[yellow]Loading message %d...[white]", msg.SequenceNumber))
	go func() {
		ctx, cancel := context.WithTimeout(ctx, detailTimeout)
		defer cancel()
		detail, err := backend.MessageDetail(ctx, target, view.SubQueue(), msg.SequenceNumber)

		v.ui.app.QueueUpdateDraw(func() {
			if v.target != target {
				return
			}
			if err != nil {
				v.detailView.SetText(fmt.Sprintf("[red]Failed to get message %d: %s[white]", msg.SequenceNumber, tview.Escape(err.Error())))
				return
			}
			v.updateDetail(detail)
		})
	}()
}

func (v *BrowseView) updateDetail(msg *models.MessageDetail) {
	var out strings.Builder

	out.WriteString(fmt.Sprintf("[yellow]Sequence:[white] %d", msg.SequenceNumber))
	if msg.DeadLetter {
		out.WriteString("  [red](dead-lettered)[white]")
	}
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("[yellow]Subject:[white] %s\n", tview.Escape(msg.Subject)))
	out.WriteString(fmt.Sprintf("[yellow]Enqueued:[white] %s\n", msg.EnqueuedTime.Format("2006-01-02 15:04:05")))
	if msg.MessageID != "" {
		out.WriteString(fmt.Sprintf("[yellow]Message ID:[white] %s\n", tview.Escape(msg.MessageID)))
	}
	if msg.CorrelationID != "" {
		out.WriteString(fmt.Sprintf("[yellow]Correlation ID:[white] %s\n", tview.Escape(msg.CorrelationID)))
	}
	out.WriteString(fmt.Sprintf("[yellow]Size:[white] %s\n\n", formatBytes(msg.Size)))

	if len(msg.Headers) > 0 {
		out.WriteString("[yellow]Headers:[white]\n")
		keys := make([]string, 0, len(msg.Headers))
		for k := range msg.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, val := range msg.Headers[k] {
				out.WriteString(fmt.Sprintf("  %s: %s\n", tview.Escape(k), tview.Escape(val)))
			}
		}
		out.WriteString("\n")
	}

	out.WriteString("[yellow]Payload:[white]\n")
	out.WriteString(tview.Escape(msg.Payload))

	v.detailView.SetText(out.String())
	v.detailView.ScrollToBeginning()
}

// GetPrimitive returns the primitive for this view
func (v *BrowseView) GetPrimitive() tview.Primitive {
	return v.flex
}

func formatOptionalCount(n *int64) string {
	if n == nil {
		return "?"
	}
	return formatCount(*n)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	} else if diff < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Format("2006-01-02")
}
