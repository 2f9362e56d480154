// Package tui provides the terminal canvas for editing a mind map using
// bubbletea.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/mindmesh/internal/editor"
	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/storage"
)

// Default cell size in model units. One terminal row is about twice as tall
// as a column is wide.
const (
	DefaultCellWidth  = 10
	DefaultCellHeight = 20
)

// TUI is the terminal editor for one document.
type TUI struct {
	editor    *editor.Editor
	store     storage.Store
	emitter   events.Emitter
	eventChan <-chan events.Event
	changes   <-chan struct{}
	autosave  time.Duration
	cell      geometry.Size
	showHelp  bool
	onQuit    func()
	logger    *slog.Logger
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI editing ed and saving through store. A nil store
// disables saving and reloading.
func New(ed *editor.Editor, store storage.Store, opts ...Option) *TUI {
	t := &TUI{
		editor:  ed,
		store:   store,
		emitter: events.Discard,
		cell:    geometry.Size{Width: DefaultCellWidth, Height: DefaultCellHeight},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithEmitter publishes save, reload and error events to em.
func WithEmitter(em events.Emitter) Option {
	return func(t *TUI) {
		if em != nil {
			t.emitter = em
		}
	}
}

// WithEvents shows events from ch in the status line.
func WithEvents(ch <-chan events.Event) Option {
	return func(t *TUI) {
		t.eventChan = ch
	}
}

// WithChanges reloads the document whenever ch fires and there are no
// unsaved edits.
func WithChanges(ch <-chan struct{}) Option {
	return func(t *TUI) {
		t.changes = ch
	}
}

// WithAutosave saves a dirty document every d. Zero disables autosave.
func WithAutosave(d time.Duration) Option {
	return func(t *TUI) {
		t.autosave = max(d, 0)
	}
}

// WithCellSize sets how many model units one terminal cell covers.
func WithCellSize(width, height float64) Option {
	return func(t *TUI) {
		if width > 0 && height > 0 {
			t.cell = geometry.Size{Width: width, Height: height}
		}
	}
}

// WithHelp starts with the full key help expanded.
func WithHelp(show bool) Option {
	return func(t *TUI) {
		t.showHelp = show
	}
}

// WithOnQuit sets the callback invoked when the user quits.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithLogger sets the logger for save and reload failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *TUI) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Run starts the TUI and blocks until it exits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	m := newModel(t)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
