package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// HelpView displays keybinding help
type HelpView struct {
	ui       *UIManager
	textView *tview.TextView
}

// NewHelpView creates a new help view
func NewHelpView(ui *UIManager) *HelpView {
	view := &HelpView{
		ui: ui,
	}

	view.textView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetText(view.getHelpText())

	view.textView.SetBorder(true).
		SetTitle(" peekq Keybindings - Press Esc to close ").
		SetTitleAlign(tview.AlignCenter)

	view.setupKeybindings()

	return view
}

func (v *HelpView) getHelpText() string {
	return `
[yellow]Global Keybindings[white]
  Ctrl+C     Quit application
  ?          Show this help
  Esc        Go back / Cancel

[yellow]Context Selection View[white]
  ↑/↓, j/k   Navigate contexts
  Enter      Connect to selected context
  i          Show where the configuration came from
  q          Quit

[yellow]Queue & Subscription List[white]
  ↑/↓, j/k   Navigate
  Enter      Browse messages
  /          Filter by name
  r          Refresh
  c          Switch context
  Esc        Clear filter / back to contexts

[yellow]Browse View[white]
  ↑/↓, j/k   Navigate messages
  Enter      Show message detail
  Tab        Switch between active and dead-letter
  r          Refresh from the oldest message
  n / p      Next / previous page
  l          Toggle live tail on the focused view
  L          Toggle live tail on both views
  Esc        Back to the list

[yellow]Tips[white]
  • Browsing never consumes or locks messages
  • A live view keeps the newest messages and polls every second
  • Counts refresh every 2 seconds; a view empties when its count reaches zero
  • page_size, live_interval and counts_interval reload when config.yaml changes
`
}

func (v *HelpView) setupKeybindings() {
	v.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			v.ui.CloseModal()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				v.ui.CloseModal()
				return nil
			}
		}
		return event
	})
}

// GetPrimitive returns the primitive for this view
func (v *HelpView) GetPrimitive() tview.Primitive {
	return v.textView
}
