package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/shubhamrasal/peekq/internal/ui/components"
)

// ContextView displays and switches NATS contexts
type ContextView struct {
	ui    *UIManager
	table *tview.Table
}

// NewContextView creates a new context view
func NewContextView(ui *UIManager) *ContextView {
	view := &ContextView{
		ui: ui,
	}

	view.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)

	view.table.SetBorder(true).
		SetTitle(" Select Context ").
		SetTitleAlign(tview.AlignCenter)

	view.setupKeybindings()

	return view
}

func (v *ContextView) setupKeybindings() {
	v.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			v.onEnter()
			return nil
		case tcell.KeyEsc:
			v.ui.ShowEntityList()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				v.ui.app.Stop()
				return nil
			case 'r':
				v.Refresh()
				return nil
			case 'i':
				v.showSource()
				return nil
			}
		}
		return event
	})
}

// Refresh updates the context list
func (v *ContextView) Refresh() {
	v.table.Clear()

	headers := []string{"NAME", "SERVER", "COUNTS FROM"}
	for i, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, i, cell)
	}

	currentCtx := v.ui.config.CurrentContextName()
	for i, ctx := range v.ui.config.Contexts {
		row := i + 1

		name := "  " + ctx.Name
		if ctx.Name == currentCtx {
			name = "> " + ctx.Name
		}
		counts := "broker"
		if ctx.MetricsPlugin != "" {
			counts = "plugin " + ctx.MetricsPlugin
		}

		server := ctx.Server
		if ctx.Name == currentCtx && v.ui.backend != nil {
			// the live connection may have picked another server of the cluster
			if url, err := v.ui.backend.ServerInfo(); err == nil {
				server = url + " (connected)"
			}
		}

		v.table.SetCell(row, 0, tview.NewTableCell(tview.Escape(name)).SetExpansion(1))
		v.table.SetCell(row, 1, tview.NewTableCell(tview.Escape(server)).SetExpansion(2))
		v.table.SetCell(row, 2, tview.NewTableCell(tview.Escape(counts)).SetExpansion(1))
	}

	v.ui.footer.Update("↑/↓: Navigate  Enter: Connect  i: Config source  Esc: Back  q: Quit  ?: Help")
}

func (v *ContextView) onEnter() {
	row, _ := v.table.GetSelection()
	if row > 0 && row <= len(v.ui.config.Contexts) {
		ctx := v.ui.config.Contexts[row-1]

		if err := v.ui.SwitchContext(ctx.Name); err != nil {
			v.ui.ShowError(fmt.Sprintf("Failed to switch context: %v", err))
			return
		}

		v.ui.ShowEntityList()
	}
}

func (v *ContextView) showSource() {
	modal := components.InfoModal("Configuration", v.ui.config.GetConfigSourceDescription(), func() {
		v.ui.CloseModal()
	})
	v.ui.ShowModal(modal)
}

// GetPrimitive returns the primitive for this view
func (v *ContextView) GetPrimitive() tview.Primitive {
	return v.table
}
