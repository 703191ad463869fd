package components

import (
	"fmt"

	"github.com/rivo/tview"
)

// Header represents the application header component
type Header struct {
	*tview.TextView
}

// NewHeader creates a new header component
func NewHeader() *Header {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	return &Header{
		TextView: textView,
	}
}

// Update updates the header with connection, context and the browsed target
func (h *Header) Update(contextName, status, target string) {
	browsing := ""
	if target != "" {
		browsing = fmt.Sprintf("      Browsing: [cyan]%s[white]", tview.Escape(target))
	}

	header := fmt.Sprintf("[yellow]PEEKQ[white] - JetStream message browser          Context: [cyan]%s[white]      %s%s",
		contextName,
		status,
		browsing,
	)
	h.SetText(header)
}

// UpdateStatus updates only the status portion
func (h *Header) UpdateStatus(connected bool) string {
	if connected {
		return "[green]●[white] Connected"
	}
	return "[red]●[white] Disconnected"
}
