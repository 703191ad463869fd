package ui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/shubhamrasal/peekq/internal/browse"
	"github.com/shubhamrasal/peekq/internal/config"
	"github.com/shubhamrasal/peekq/internal/models"
	"github.com/shubhamrasal/peekq/internal/ui/components"
)

// Backend is one broker connection and the session browsing through it
type Backend interface {
	Session() *browse.Session
	ListEntities(ctx context.Context) ([]models.Entity, error)
	MessageDetail(ctx context.Context, target models.Target, sub models.SubQueue, seq int64) (*models.MessageDetail, error)
	// ActiveHistory returns nil when no metrics plugin serves the connection
	ActiveHistory(ctx context.Context, target models.Target, window time.Duration) ([]float64, error)
	IsConnected() bool
	// Ping round-trips to the server; the header shows its result
	Ping(ctx context.Context) error
	// ServerInfo returns the URL of the connected server
	ServerInfo() (string, error)
	Close()
}

// Connector opens a backend for a context; listener receives the session's events
type Connector func(natsCtx *config.Context, listener browse.Listener) (Backend, error)

const pingTimeout = 2 * time.Second

const (
	pageContexts = "contexts"
	pageEntities = "entities"
	pageBrowse   = "browse"
)

// UIManager manages the application UI
type UIManager struct {
	app     *tview.Application
	config  *config.Config
	connect Connector
	logger  zerolog.Logger
	backend Backend
	healthy bool // last connection check, owned by the UI goroutine
	closed  atomic.Bool

	// UI components
	pages  *tview.Pages
	header *components.Header
	footer *components.Footer

	// Views
	contextView    *ContextView
	entityListView *EntityListView
	browseView     *BrowseView
	helpView       *HelpView

	// State
	currentPage  string
	updateTicker *time.Ticker
}

// NewUIManager creates a new UI manager
func NewUIManager(app *tview.Application, cfg *config.Config, connect Connector, logger zerolog.Logger) *UIManager {
	ui := &UIManager{
		app:     app,
		config:  cfg,
		connect: connect,
		logger:  logger,
		pages:   tview.NewPages(),
	}

	ui.initComponents()
	ui.setupPages()
	ui.setupKeybindings()

	return ui
}

func (ui *UIManager) initComponents() {
	ui.header = components.NewHeader()
	ui.footer = components.NewFooter()

	ui.contextView = NewContextView(ui)
	ui.entityListView = NewEntityListView(ui)
	ui.browseView = NewBrowseView(ui)
	ui.helpView = NewHelpView(ui)
}

func (ui *UIManager) setupPages() {
	ui.pages.AddPage(pageContexts, ui.contextView.GetPrimitive(), true, false)
	ui.pages.AddPage(pageEntities, ui.entityListView.GetPrimitive(), true, true)
	ui.pages.AddPage(pageBrowse, ui.browseView.GetPrimitive(), true, false)
}

func (ui *UIManager) setupKeybindings() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			ui.app.Stop()
			return nil
		}
		// the filter input gets every other key
		if ui.currentPage == pageEntities && ui.entityListView.searching {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case '?':
				ui.ShowHelp()
				return nil
			case 'c':
				if ui.currentPage == pageEntities {
					ui.ShowContextView()
					return nil
				}
			}
		}
		return event
	})
}

// Connect opens a backend for natsCtx and replaces the current one
func (ui *UIManager) Connect(natsCtx *config.Context) error {
	backend, err := ui.connect(natsCtx, ui.onSessionEvent)
	if err != nil {
		return err
	}

	if old := ui.backend; old != nil {
		go old.Close()
	}
	ui.backend = backend
	ui.healthy = backend.IsConnected()
	ui.updateHeader()
	return nil
}

// onSessionEvent runs on session goroutines; rendering happens on the UI goroutine
func (ui *UIManager) onSessionEvent(ev browse.Event) {
	if ui.closed.Load() {
		return
	}
	ui.app.QueueUpdateDraw(func() {
		ui.browseView.OnEvent(ev)
	})
}

// ApplySettings pushes reloaded browse settings to the current session
func (ui *UIManager) ApplySettings(settings browse.Settings) {
	if ui.closed.Load() {
		return
	}
	ui.app.QueueUpdate(func() {
		if ui.backend != nil {
			ui.backend.Session().UpdateSettings(settings)
		}
	})
}

// Start starts the UI
func (ui *UIManager) Start() error {
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.header, 1, 0, false).
		AddItem(ui.pages, 0, 1, true).
		AddItem(ui.footer, 1, 0, false)

	// Start auto-refresh ticker
	ui.updateTicker = time.NewTicker(ui.config.GetRefreshInterval())
	go ui.autoRefreshLoop(ui.updateTicker)

	ui.ShowEntityList()

	ui.app.SetRoot(layout, true).SetFocus(ui.pages)
	return ui.app.Run()
}

// Close stops background refreshes and releases the backend
func (ui *UIManager) Close() {
	if !ui.closed.CompareAndSwap(false, true) {
		return
	}
	if ui.updateTicker != nil {
		ui.updateTicker.Stop()
	}
	if ui.backend != nil {
		ui.backend.Close()
	}
}

func (ui *UIManager) updateHeader() {
	if ui.backend == nil {
		return
	}
	status := ui.header.UpdateStatus(ui.healthy)
	ui.header.Update(ui.config.CurrentContextName(), status, ui.backend.Session().Target().String())
}

func (ui *UIManager) autoRefreshLoop(ticker *time.Ticker) {
	for range ticker.C {
		if ui.closed.Load() {
			return
		}
		ui.app.QueueUpdateDraw(func() {
			ui.checkConnection()
			// the browse view is driven by session events
			if ui.currentPage == pageEntities {
				ui.entityListView.Refresh()
			}
		})
	}
}

// checkConnection pings the backend off the UI goroutine and shows the result in the header
func (ui *UIManager) checkConnection() {
	backend := ui.backend
	if backend == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		err := backend.Ping(ctx)
		if ui.closed.Load() {
			return
		}
		ui.app.QueueUpdateDraw(func() {
			ui.applyPing(backend, err)
		})
	}()
}

// applyPing records a ping result for backend unless it has been replaced meanwhile
func (ui *UIManager) applyPing(backend Backend, err error) {
	if ui.backend != backend {
		return
	}
	if err != nil && ui.healthy {
		ui.logger.Warn().Err(err).Msg("connection check failed")
	}
	ui.healthy = err == nil
	ui.updateHeader()
}

// ShowContextView displays the context selection view
func (ui *UIManager) ShowContextView() {
	ui.footer.ClearNotice()
	ui.currentPage = pageContexts
	ui.pages.SwitchToPage(pageContexts)
	ui.contextView.Refresh()
	ui.app.SetFocus(ui.contextView.GetPrimitive())
}

// ShowEntityList displays the queue and subscription list
func (ui *UIManager) ShowEntityList() {
	ui.currentPage = pageEntities
	ui.pages.SwitchToPage(pageEntities)
	ui.entityListView.Refresh()
	ui.entityListView.updateFooter()
	ui.app.SetFocus(ui.entityListView.GetPrimitive())
}

// ShowBrowse selects target in the session and displays its messages
func (ui *UIManager) ShowBrowse(target models.Target) {
	ui.footer.ClearNotice()
	ui.currentPage = pageBrowse
	ui.pages.SwitchToPage(pageBrowse)
	ui.browseView.SetTarget(target)
	ui.updateHeader()
	ui.app.SetFocus(ui.browseView.GetPrimitive())
}

// ShowHelp displays the help modal
func (ui *UIManager) ShowHelp() {
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(ui.helpView.GetPrimitive(), 32, 1, true).
			AddItem(nil, 0, 1, false), 80, 1, true).
		AddItem(nil, 0, 1, false)

	ui.pages.AddPage("help-modal", modal, true, true)
}

// ShowModal displays a modal dialog
func (ui *UIManager) ShowModal(modal tview.Primitive) {
	ui.pages.AddPage("modal", modal, true, true)
}

// CloseModal closes any open modal
func (ui *UIManager) CloseModal() {
	ui.pages.RemovePage("modal")
	ui.pages.RemovePage("help-modal")
	ui.restoreFocus()
}

func (ui *UIManager) restoreFocus() {
	switch ui.currentPage {
	case pageContexts:
		ui.app.SetFocus(ui.contextView.GetPrimitive())
	case pageBrowse:
		ui.browseView.focusTable()
	default:
		ui.app.SetFocus(ui.entityListView.GetPrimitive())
	}
}

// ShowError displays an error message
func (ui *UIManager) ShowError(message string) {
	modal := components.ErrorModal(message, func() {
		ui.CloseModal()
	})
	ui.ShowModal(modal)
}

// SwitchContext connects to a different NATS context
func (ui *UIManager) SwitchContext(contextName string) error {
	if err := ui.config.SetContext(contextName); err != nil {
		return err
	}

	if err := ui.Connect(ui.config.CurrentContext()); err != nil {
		return fmt.Errorf("failed to connect to new context: %w", err)
	}
	ui.logger.Info().Str("context", contextName).Msg("switched context")
	return nil
}
