package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/shubhamrasal/peekq/internal/models"
)

const listTimeout = 10 * time.Second

// EntityListView lists queues and subscriptions with their counts
type EntityListView struct {
	ui            *UIManager
	mainFlex      *tview.Flex
	leftFlex      *tview.Flex
	table         *tview.Table
	describePanel *tview.TextView
	searchInput   *tview.InputField
	entities      []models.Entity
	allEntities   []models.Entity
	filterText    string
	searching     bool
	loading       bool
}

// NewEntityListView creates a new entity list view
func NewEntityListView(ui *UIManager) *EntityListView {
	view := &EntityListView{
		ui: ui,
	}

	view.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetSelectionChangedFunc(func(row, column int) {
			view.updateDescribePanel(row)
		})

	view.table.SetBorder(true).
		SetTitle(" Queues & Subscriptions ").
		SetTitleAlign(tview.AlignCenter)

	view.searchInput = tview.NewInputField().
		SetLabel("Filter: ").
		SetFieldWidth(50).
		SetChangedFunc(func(text string) {
			view.filterText = text
			view.applyFilter()
		})

	view.searchInput.SetBorder(true).
		SetTitle(" Search (ESC to clear) ").
		SetTitleAlign(tview.AlignLeft)

	view.describePanel = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	view.describePanel.SetBorder(true).
		SetTitle(" Details ").
		SetTitleAlign(tview.AlignCenter)
	view.describePanel.SetText("[gray]Select a queue or subscription[white]")

	view.leftFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view.table, 0, 1, true)

	view.mainFlex = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(view.leftFlex, 0, 2, true).
		AddItem(view.describePanel, 0, 1, false)

	view.setupKeybindings()
	view.setupHeaders()

	return view
}

func (v *EntityListView) setupHeaders() {
	headers := []string{"NAME", "KIND", "FILTER", "ACTIVE", "DEAD-LETTER"}
	for i, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, i, cell)
	}
}

func (v *EntityListView) setupKeybindings() {
	v.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			v.onEnter()
			return nil
		case tcell.KeyEsc:
			if v.filterText != "" {
				v.clearSearch()
				return nil
			}
			v.ui.ShowContextView()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case '/':
				v.showSearch()
				return nil
			case 'r':
				v.Refresh()
				return nil
			}
		}
		return event
	})

	v.searchInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			v.clearSearch()
			return nil
		case tcell.KeyEnter, tcell.KeyTab:
			v.closeSearchKeepFilter()
			return nil
		}
		return event
	})
}

// Refresh reloads entities from the broker in the background
func (v *EntityListView) Refresh() {
	backend := v.ui.backend
	if backend == nil || v.loading {
		return
	}
	v.loading = true

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		entities, err := backend.ListEntities(ctx)

		v.ui.app.QueueUpdateDraw(func() {
			v.loading = false
			if err != nil {
				v.ui.logger.Warn().Err(err).Msg("failed to list entities")
				v.ui.footer.Warn("Failed to list queues: " + err.Error())
				return
			}
			v.ui.footer.ClearNotice()
			v.allEntities = entities
			v.applyFilter()
		})
	}()
}

func (v *EntityListView) showSearch() {
	if v.searching {
		return
	}
	v.searching = true
	v.leftFlex.Clear()
	v.leftFlex.AddItem(v.searchInput, 3, 0, true)
	v.leftFlex.AddItem(v.table, 0, 1, false)
	v.ui.app.SetFocus(v.searchInput)
	v.updateFooter()
}

func (v *EntityListView) clearSearch() {
	v.searching = false
	v.filterText = ""
	v.searchInput.SetText("")
	v.leftFlex.Clear()
	v.leftFlex.AddItem(v.table, 0, 1, true)
	v.ui.app.SetFocus(v.table)
	v.applyFilter()
}

func (v *EntityListView) closeSearchKeepFilter() {
	v.searching = false
	v.leftFlex.Clear()
	v.leftFlex.AddItem(v.table, 0, 1, true)
	v.ui.app.SetFocus(v.table)
	v.updateFooter()
}

func (v *EntityListView) applyFilter() {
	v.entities = filterEntities(v.allEntities, v.filterText)
	v.updateTable()
}

// filterEntities keeps entities whose name contains text, ignoring case
func filterEntities(all []models.Entity, text string) []models.Entity {
	if text == "" {
		return all
	}
	filterLower := strings.ToLower(text)
	var out []models.Entity
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Target.String()), filterLower) {
			out = append(out, e)
		}
	}
	return out
}

func (v *EntityListView) updateTable() {
	row, _ := v.table.GetSelection()

	for r := v.table.GetRowCount() - 1; r > 0; r-- {
		v.table.RemoveRow(r)
	}

	for i, e := range v.entities {
		r := i + 1
		kind := "queue"
		if e.Target.Kind == models.KindSubscription {
			kind = "subscription"
		}
		filter := e.FilterSubject
		if len(filter) > 30 {
			filter = filter[:27] + "..."
		}

		deadLetter := tview.NewTableCell(formatCount(e.DeadLetterCount))
		if e.DeadLetterCount > 0 {
			deadLetter.SetTextColor(tcell.ColorRed)
		}

		v.table.SetCell(r, 0, tview.NewTableCell(tview.Escape(e.Target.String())))
		v.table.SetCell(r, 1, tview.NewTableCell(kind))
		v.table.SetCell(r, 2, tview.NewTableCell(tview.Escape(filter)))
		v.table.SetCell(r, 3, tview.NewTableCell(formatCount(e.ActiveCount)))
		v.table.SetCell(r, 4, deadLetter)
	}

	if row > len(v.entities) {
		row = len(v.entities)
	}
	if row < 1 && len(v.entities) > 0 {
		row = 1
	}
	if row > 0 {
		v.table.Select(row, 0)
	}
	v.updateDescribePanel(row)
	v.updateFooter()
}

func (v *EntityListView) updateFooter() {
	if v.ui.currentPage != pageEntities {
		return
	}
	if v.searching {
		v.ui.footer.Update("Type to filter  Tab/Enter: Jump to list  ESC: Clear filter")
		return
	}
	filterInfo := ""
	if v.filterText != "" {
		filterInfo = fmt.Sprintf(" [Filtered: %d/%d]", len(v.entities), len(v.allEntities))
	}
	v.ui.footer.Update(fmt.Sprintf("Enter: Browse  /: Filter  r: Refresh  c: Contexts  ?: Help%s", filterInfo))
}

func (v *EntityListView) onEnter() {
	row, _ := v.table.GetSelection()
	if row > 0 && row <= len(v.entities) {
		v.ui.ShowBrowse(v.entities[row-1].Target)
	}
}

func (v *EntityListView) updateDescribePanel(row int) {
	if row <= 0 || row > len(v.entities) {
		v.describePanel.SetText("[gray]Select a queue or subscription[white]")
		return
	}

	e := v.entities[row-1]
	suffix := v.ui.config.Browse.Suffix()

	var output strings.Builder
	output.WriteString(fmt.Sprintf("[yellow]%s[white]\n\n", tview.Escape(e.Target.String())))
	output.WriteString(fmt.Sprintf("[cyan]Stream:[white] %s\n", tview.Escape(e.Target.Stream())))
	if e.Target.Kind == models.KindSubscription {
		output.WriteString(fmt.Sprintf("[cyan]Consumer:[white] %s\n", tview.Escape(e.Target.Name)))
	}
	if e.FilterSubject != "" {
		output.WriteString(fmt.Sprintf("[cyan]Filter:[white]\n  %s\n", tview.Escape(e.FilterSubject)))
	}
	output.WriteString(fmt.Sprintf("[cyan]Dead-letter stream:[white] %s\n\n", tview.Escape(models.DeadLetterName(e.Target, suffix))))

	output.WriteString("[yellow]Messages:[white]\n")
	output.WriteString(fmt.Sprintf("  Active: %s\n", formatCount(e.ActiveCount)))
	output.WriteString(fmt.Sprintf("  Dead-letter: %s\n", formatCount(e.DeadLetterCount)))

	v.describePanel.SetText(output.String())
	v.describePanel.ScrollToBeginning()
}

// GetPrimitive returns the primitive for this view
func (v *EntityListView) GetPrimitive() tview.Primitive {
	return v.mainFlex
}

func formatCount(n int64) string {
	if n > 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	} else if n > 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func formatBytes(b int) string {
	if b > 1024*1024*1024 {
		return fmt.Sprintf("%.1fGB", float64(b)/(1024*1024*1024))
	} else if b > 1024*1024 {
		return fmt.Sprintf("%.1fMB", float64(b)/(1024*1024))
	} else if b > 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
