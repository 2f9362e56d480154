package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func runStateSink(t *testing.T, sink *StateSink, evs ...Event) {
	t.Helper()

	ch := make(chan Event, len(evs))
	if err := sink.Start(context.Background(), ch); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestStateSinkFoldsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	sink := NewStateSink(path)
	sink.SetMinDelay(0)

	runStateSink(t, sink,
		&DocumentOpenedEvent{BaseEvent: NewEditorEvent(EventDocumentOpened), Path: "/doc.json", Nodes: 1, Restored: true},
		&NodeAddedEvent{BaseEvent: NewEditorEvent(EventNodeAdded), NodeID: "a"},
		&NodeAddedEvent{BaseEvent: NewEditorEvent(EventNodeAdded), NodeID: "b"},
		&NodesDeletedEvent{BaseEvent: NewEditorEvent(EventNodesDeleted), NodeIDs: []string{"a"}},
		&SelectionChangedEvent{BaseEvent: NewEditorEvent(EventSelectionChanged), NodeID: "b"},
		&ViewportChangedEvent{BaseEvent: NewEditorEvent(EventViewportChanged), Zoom: 1.5, PanX: 10, PanY: -4},
		&DocumentSavedEvent{BaseEvent: NewStorageEvent(EventDocumentSaved), Path: "/doc.json", Nodes: 2, Edges: 1, Revision: 9},
	)

	got, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.Document != "/doc.json" || got.Nodes != 2 || got.Edges != 1 || got.Revision != 9 {
		t.Errorf("state = %+v", got)
	}
	if got.Selected != "b" {
		t.Errorf("Selected = %q, want b", got.Selected)
	}
	if got.Zoom != 1.5 || got.PanX != 10 || got.PanY != -4 {
		t.Errorf("viewport = %v (%v, %v)", got.Zoom, got.PanX, got.PanY)
	}
	if got.LastSaved.IsZero() {
		t.Error("LastSaved not recorded")
	}
}

func TestStateSinkFlushesOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	sink := NewStateSink(path)
	sink.SetMinDelay(1 << 62)
	// First write happens immediately since lastSave is zero.
	runStateSink(t, sink,
		&DocumentOpenedEvent{BaseEvent: NewEditorEvent(EventDocumentOpened), Path: "/a.yaml", Nodes: 4, Restored: true},
		&ErrorEvent{BaseEvent: NewStorageEvent(EventError), Message: "disk full", Severity: SeverityError},
	)

	got, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.LastError != "disk full" {
		t.Errorf("LastError = %q, want flushed value", got.LastError)
	}
}

func TestStateSinkResetsForOtherDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	first := NewStateSink(path)
	first.SetMinDelay(0)
	runStateSink(t, first,
		&DocumentOpenedEvent{BaseEvent: NewEditorEvent(EventDocumentOpened), Path: "/a.json", Nodes: 1, Restored: true},
		&ViewportChangedEvent{BaseEvent: NewEditorEvent(EventViewportChanged), Zoom: 0.5},
	)

	second := NewStateSink(path)
	second.SetMinDelay(0)
	runStateSink(t, second,
		&DocumentOpenedEvent{BaseEvent: NewEditorEvent(EventDocumentOpened), Path: "/b.json", Nodes: 1, Restored: true},
	)

	if got := second.State(); got.Document != "/b.json" || got.Zoom != 1 {
		t.Errorf("state = %+v, want fresh state for /b.json", got)
	}
}

func TestStateSinkCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	sink := NewStateSink(path)
	if err := sink.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Errorf("backup not created: %v", err)
	}
	if got := sink.State(); got.Version != CurrentStateVersion || got.Document != "" {
		t.Errorf("state = %+v, want fresh", got)
	}
}

func TestReadStateVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadState(path); err == nil {
		t.Error("ReadState accepted a future version")
	}
}

func TestReadStateMissing(t *testing.T) {
	_, err := ReadState(filepath.Join(t.TempDir(), "missing.json"))
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want not exist", err)
	}
}
