package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

const (
	// tickInterval is the interval for autosave checks.
	tickInterval = time.Second
	// ioTimeout bounds a single save or reload.
	ioTimeout = 10 * time.Second
)

// eventMsg wraps an event for the bubbletea message system.
type eventMsg struct{ event events.Event }

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// changedMsg signals that the document file changed on disk.
type changedMsg struct{}

// tickMsg signals a periodic tick for autosave.
type tickMsg time.Time

// savedMsg carries the result of a save.
type savedMsg struct {
	revision uint64
	nodes    int
	edges    int
	took     time.Duration
	err      error
}

// reloadedMsg carries a document read back from disk.
type reloadedMsg struct {
	mesh *mesh.Mesh
	err  error
}

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

// waitForChange creates a command that waits for the next file change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// doTick creates a command that waits for the tick interval and sends a tickMsg.
func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-len(m.input.Prompt)-1)
		return m, nil

	case eventMsg:
		if line := events.FormatWithTimestamp(msg.event); line != "" {
			m.statusLine = line
			m.statusStyle = StyleForEvent(msg.event)
		}
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		m.eventChan = nil
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.handleChange(), waitForChange(m.changes))

	case reloadedMsg:
		m.handleReloaded(msg)
		return m, nil

	case savedMsg:
		return m.handleSaved(msg)

	case tickMsg:
		return m, tea.Batch(m.autosaveIfDue(time.Time(msg)), doTick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey processes canvas keyboard input.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.editor
	step := m.cell

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Cancel):
		if m.drag != nil {
			ed.CancelGesture()
			m.drag = nil
			return m, nil
		}
		ed.Deselect()
		return m, nil

	case key.Matches(msg, m.keys.AddChild):
		ed.AddChild()
		return m, nil

	case key.Matches(msg, m.keys.AddSibling):
		ed.AddSibling()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		ed.DeleteSelected()
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if _, ok := ed.Selection().OnlySelected(ed.Mesh()); !ok {
			return m, nil
		}
		m.editing = true
		m.input.SetValue(ed.Selection().EditingText())
		m.input.CursorEnd()
		return m, tea.Batch(m.input.Focus(), textinput.Blink)

	case key.Matches(msg, m.keys.Center):
		ed.CenterOnSelection()
		return m, nil

	// Arrow keys move the view, so the canvas shifts the opposite way.
	case key.Matches(msg, m.keys.Left):
		ed.PanBy(geometry.Vec(step.Width, 0))
		return m, nil

	case key.Matches(msg, m.keys.Right):
		ed.PanBy(geometry.Vec(-step.Width, 0))
		return m, nil

	case key.Matches(msg, m.keys.Up):
		ed.PanBy(geometry.Vec(0, step.Height))
		return m, nil

	case key.Matches(msg, m.keys.Down):
		ed.PanBy(geometry.Vec(0, -step.Height))
		return m, nil

	case key.Matches(msg, m.keys.ZoomIn):
		ed.Zoom(zoomStep)
		return m, nil

	case key.Matches(msg, m.keys.ZoomOut):
		ed.Zoom(1 / zoomStep)
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		ed.ResetView()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		return m, m.save()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	default:
		return m, nil
	}
}

// handleEditKey processes input while a node's text is being edited.
func (m model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.editKeys.Commit):
		if err := m.editor.SetText(m.input.Value()); err != nil {
			m.lastErr = err.Error()
		}
		m.stopEditing()
		return m, nil

	case key.Matches(msg, m.editKeys.Cancel):
		m.stopEditing()
		return m, nil

	case msg.Type == tea.KeyCtrlC:
		m.stopEditing()
		return m.quit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

// handleMouse maps pointer input to gestures. A press that is released
// without moving is a tap and selects what is under it.
func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m, nil
	}
	ed := m.editor

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		ed.Zoom(zoomStep)

	case msg.Button == tea.MouseButtonWheelDown:
		ed.Zoom(1 / zoomStep)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !m.inCanvas(msg.Y) {
			return m, nil
		}
		m.drag = &dragState{start: m.screenPoint(msg.X, msg.Y)}

	case msg.Action == tea.MouseActionMotion && m.drag != nil:
		translation := m.screenPoint(msg.X, msg.Y).Sub(m.drag.start)
		if !m.drag.moved && translation.IsZero() {
			return m, nil
		}
		m.drag.moved = true
		ed.DragChanged(m.drag.start, translation, m.container())

	case msg.Action == tea.MouseActionRelease && m.drag != nil:
		d := m.drag
		m.drag = nil
		if d.moved {
			ed.DragEnded(m.screenPoint(msg.X, msg.Y).Sub(d.start))
			return m, nil
		}
		if id, ok := ed.Viewport().HitTest(ed.Mesh(), d.start, m.container()); ok {
			ed.Select(id)
		} else {
			ed.Deselect()
		}
	}
	return m, nil
}

// quit saves pending edits when autosave is on, then exits.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.autosave > 0 && m.store != nil && (m.saving || m.editor.Dirty()) {
		m.quitting = true
		return m, m.save()
	}
	if m.onQuit != nil {
		m.onQuit()
	}
	return m, tea.Quit
}

// save snapshots the document on the update loop and writes it in a command.
func (m *model) save() tea.Cmd {
	if m.store == nil || m.saving {
		return nil
	}
	snap, rev := m.editor.Snapshot()
	m.saving = true
	m.lastSave = time.Now()

	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()

		start := time.Now()
		err := store.Save(ctx, snap)
		return savedMsg{
			revision: rev,
			nodes:    len(snap.Nodes),
			edges:    len(snap.Edges),
			took:     time.Since(start),
			err:      err,
		}
	}
}

func (m model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.saving = false
	if msg.err != nil {
		m.lastErr = msg.err.Error()
		m.logger.Error("save failed", "path", m.store.Path(), "error", msg.err)
		m.emitter.Emit(&events.ErrorEvent{
			BaseEvent: events.NewStorageEvent(events.EventError),
			Message:   "save failed: " + msg.err.Error(),
			Severity:  events.SeverityError,
			Context:   map[string]string{"path": m.store.Path()},
		})
	} else {
		m.editor.MarkSaved(msg.revision)
		m.lastErr = ""
		m.lastSaved = time.Now()
		m.emitter.Emit(&events.DocumentSavedEvent{
			BaseEvent:  events.NewStorageEvent(events.EventDocumentSaved),
			Path:       m.store.Path(),
			Nodes:      msg.nodes,
			Edges:      msg.edges,
			Revision:   msg.revision,
			DurationMs: msg.took.Milliseconds(),
		})
	}

	if !m.quitting {
		return m, nil
	}
	// Edits made while the last save was in flight still need writing.
	if msg.err == nil && m.editor.Dirty() {
		return m, m.save()
	}
	if m.onQuit != nil {
		m.onQuit()
	}
	return m, tea.Quit
}

// autosaveIfDue starts a save when the document is dirty and the autosave
// interval has passed since the last attempt.
func (m *model) autosaveIfDue(now time.Time) tea.Cmd {
	if m.autosave <= 0 || m.saving || !m.editor.Dirty() {
		return nil
	}
	if now.Sub(m.lastSave) < m.autosave {
		return nil
	}
	return m.save()
}

// handleChange reloads the document after an external change unless local
// edits would be lost.
func (m *model) handleChange() tea.Cmd {
	if m.store == nil {
		return nil
	}
	if m.editor.Dirty() || m.saving {
		m.logger.Warn("document changed on disk, keeping unsaved edits", "path", m.store.Path())
		m.emitter.Emit(&events.ErrorEvent{
			BaseEvent: events.NewStorageEvent(events.EventError),
			Message:   "document changed on disk; unsaved edits kept",
			Severity:  events.SeverityWarning,
			Context:   map[string]string{"path": m.store.Path()},
		})
		return nil
	}

	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()

		snap, err := store.Load(ctx)
		if err != nil {
			return reloadedMsg{err: err}
		}
		doc, err := mesh.Load(snap)
		return reloadedMsg{mesh: doc, err: err}
	}
}

func (m *model) handleReloaded(msg reloadedMsg) {
	if msg.err != nil {
		m.lastErr = msg.err.Error()
		m.logger.Warn("reload failed", "path", m.store.Path(), "error", msg.err)
		severity := events.SeverityWarning
		if errors.Is(msg.err, mesh.ErrInvalidSnapshot) {
			severity = events.SeverityError
		}
		m.emitter.Emit(&events.ErrorEvent{
			BaseEvent: events.NewStorageEvent(events.EventError),
			Message:   "reload failed: " + msg.err.Error(),
			Severity:  severity,
			Context:   map[string]string{"path": m.store.Path()},
		})
		return
	}
	if m.editor.Dirty() {
		// Edited while the reload was in flight.
		return
	}

	m.drag = nil
	if m.editing {
		m.stopEditing()
	}
	m.editor.Replace(msg.mesh)
	m.emitter.Emit(&events.DocumentReloadedEvent{
		BaseEvent: events.NewStorageEvent(events.EventDocumentReloaded),
		Path:      m.store.Path(),
		Nodes:     msg.mesh.NodeCount(),
	})
}
