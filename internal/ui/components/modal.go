package components

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ErrorModal creates an error message dialog
func ErrorModal(message string, onDismiss func()) *tview.Modal {
	return dismissModal("Error: "+message, tcell.ColorRed, tcell.ColorWhite, onDismiss)
}

// InfoModal creates an info message dialog
func InfoModal(title, message string, onDismiss func()) *tview.Modal {
	return dismissModal(title+"\n\n"+message, tcell.ColorGreen, tcell.ColorBlack, onDismiss)
}

// dismissModal is a one-button dialog
func dismissModal(text string, button, buttonText tcell.Color, onDismiss func()) *tview.Modal {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			if onDismiss != nil {
				onDismiss()
			}
		})

	modal.SetBackgroundColor(tcell.ColorDefault)
	modal.SetButtonBackgroundColor(button)
	modal.SetButtonTextColor(buttonText)
	return modal
}
