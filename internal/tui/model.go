package tui

import (
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/mindmesh/internal/editor"
	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/storage"
)

const (
	// zoomStep is the pinch value of one wheel notch or +/- key.
	zoomStep = 1.1
	// maxTextInput bounds node text typed in the editor.
	maxTextInput = 200
)

// dragState tracks a left-button gesture from press to release.
type dragState struct {
	start geometry.Point
	moved bool
}

// model is the bubbletea model for the TUI.
type model struct {
	// Document
	editor  *editor.Editor
	store   storage.Store
	emitter events.Emitter
	logger  *slog.Logger

	// Sources
	eventChan <-chan events.Event
	changes   <-chan struct{}

	// Widgets
	keys     keyMap
	editKeys editKeyMap
	help     help.Model
	input    textinput.Model
	spinner  spinner.Model

	// UI state
	width   int
	height  int
	cell    geometry.Size
	editing bool
	drag    *dragState

	// Persistence
	autosave    time.Duration
	saving      bool
	quitting    bool
	lastSave    time.Time
	lastSaved   time.Time
	lastErr     string
	statusLine  string
	statusStyle lipgloss.Style

	// Callbacks
	onQuit func()
}

// newModel creates a model from the TUI's configuration.
func newModel(t *TUI) model {
	input := textinput.New()
	input.Prompt = "text: "
	input.CharLimit = maxTextInput

	h := help.New()
	h.ShowAll = t.showHelp

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.Saving

	return model{
		editor:    t.editor,
		store:     t.store,
		emitter:   t.emitter,
		logger:    t.logger,
		eventChan: t.eventChan,
		changes:   t.changes,
		keys:      defaultKeyMap(),
		editKeys:  defaultEditKeyMap(),
		help:      h,
		input:     input,
		spinner:   sp,
		cell:      t.cell,
		autosave:  t.autosave,
		lastSave:  time.Now(),
		onQuit:    t.onQuit,

		statusStyle: styles.Event,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.eventChan),
		waitForChange(m.changes),
		doTick(),
		m.spinner.Tick,
	)
}

// Update, handleKey, handleMouse and friends are implemented in update.go
// View is implemented in view.go

// container is the canvas size in screen units.
func (m model) container() geometry.Size {
	return geometry.Size{
		Width:  float64(m.width) * m.cell.Width,
		Height: float64(m.canvasRows()) * m.cell.Height,
	}
}

// screenPoint returns the screen point at the center of a terminal cell.
func (m model) screenPoint(col, row int) geometry.Point {
	return geometry.Pt(
		(float64(col)+0.5)*m.cell.Width,
		(float64(row)+0.5)*m.cell.Height,
	)
}

// cellAt returns the terminal cell containing a screen point.
func (m model) cellAt(p geometry.Point) (col, row int) {
	return int(math.Floor(p.X / m.cell.Width)), int(math.Floor(p.Y / m.cell.Height))
}

// inCanvas reports whether a terminal row belongs to the canvas.
func (m model) inCanvas(row int) bool {
	return row >= 0 && row < m.canvasRows()
}
