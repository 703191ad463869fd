package components

import (
	"github.com/rivo/tview"
)

// Footer shows the key hints of the current page and, after them, the latest notice
type Footer struct {
	*tview.TextView
	hints  string
	notice string
}

// NewFooter creates a new footer component
func NewFooter() *Footer {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	return &Footer{
		TextView: textView,
	}
}

// Update replaces the key hints and keeps the notice
func (f *Footer) Update(hints string) {
	f.hints = hints
	f.render()
}

// Warn shows msg in red until ClearNotice
func (f *Footer) Warn(msg string) {
	f.notice = "[red]" + tview.Escape(msg) + "[white]"
	f.render()
}

// ClearNotice drops the notice
func (f *Footer) ClearNotice() {
	if f.notice == "" {
		return
	}
	f.notice = ""
	f.render()
}

func (f *Footer) render() {
	text := " " + f.hints
	if f.notice != "" {
		text += "  " + f.notice
	}
	f.SetText(text)
}
