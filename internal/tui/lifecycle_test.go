package tui

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/npratt/mindmesh/internal/editor"
	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/storage"
	"github.com/npratt/mindmesh/internal/testutil"
)

// TestTUILifecycleSmoke verifies the full bubbletea program lifecycle:
// start, render the document, handle keyboard input, and quit cleanly.
// This test uses teatest to run the TUI headlessly without a real TTY.
func TestTUILifecycleSmoke(t *testing.T) {
	eventChan := make(chan events.Event, 10)
	rec := testutil.NewRecorder()

	doc := mesh.New()
	ed := editor.New(doc, editor.WithEmitter(rec))
	ed.Select(doc.RootID())

	var quitCalled bool
	tui := New(ed, nil,
		WithEvents(eventChan),
		WithOnQuit(func() { quitCalled = true }),
	)

	tm := teatest.NewTestModel(
		t,
		newModel(tui),
		teatest.WithInitialTermSize(80, 24),
	)

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("(root)"))
	}, teatest.WithDuration(3*time.Second))

	// Add a child, then announce it on the status line.
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	eventChan <- &events.NodeAddedEvent{
		BaseEvent: events.NewEditorEvent(events.EventNodeAdded),
		NodeID:    "0123456789abcdef",
		X:         200,
		Y:         200,
	}
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("added child 01234567"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	if fm == nil {
		t.Fatal("FinalModel returned nil")
	}
	if got := fm.(model).editor.Mesh().NodeCount(); got != 2 {
		t.Errorf("NodeCount = %d, want 2", got)
	}
	if !quitCalled {
		t.Error("quit callback was not invoked")
	}

	close(eventChan)
}

// TestTUILifecycleSaveOnQuit verifies that quitting with autosave on writes
// pending edits before the program exits.
func TestTUILifecycleSaveOnQuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	store, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	doc := mesh.New()
	ed := editor.New(doc)
	ed.Select(doc.RootID())

	tm := teatest.NewTestModel(
		t,
		newModel(New(ed, store, WithAutosave(time.Hour))),
		teatest.WithInitialTermSize(80, 24),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	if fm.(model).editor.Dirty() {
		t.Error("document still dirty after quit")
	}

	snap, err := store.Load(t.Context())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("saved %d nodes, want 2", len(snap.Nodes))
	}
}
