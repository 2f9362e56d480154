package events

import (
	"strings"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType EventType
		wantNil  bool
		wantErr  bool
	}{
		{"node added", `{"type":"node.added","node_id":"n","x":1,"y":2}`, EventNodeAdded, false, false},
		{"deleted", `{"type":"nodes.deleted","node_ids":["a","b"]}`, EventNodesDeleted, false, false},
		{"saved", `{"type":"document.saved","path":"p","revision":3}`, EventDocumentSaved, false, false},
		{"viewport", `{"type":"viewport.changed","zoom":2}`, EventViewportChanged, false, false},
		{"unknown type", `{"type":"future.thing"}`, "", true, false},
		{"not json", `nope`, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantNil {
				if ev != nil {
					t.Errorf("event = %#v, want nil", ev)
				}
				return
			}
			if ev.Type() != tt.wantType {
				t.Errorf("Type = %s, want %s", ev.Type(), tt.wantType)
			}
		})
	}
}

func TestParseEvent_Fields(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"nodes.deleted","timestamp":"2024-01-01T00:00:00Z","source":"editor","node_ids":["a","b"],"orphans":1}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	e, ok := ev.(*NodesDeletedEvent)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if len(e.NodeIDs) != 2 || e.Orphans != 1 || e.Source() != SourceEditor {
		t.Errorf("event = %+v", e)
	}
	if e.Timestamp().Year() != 2024 {
		t.Errorf("Timestamp = %v", e.Timestamp())
	}
}

func TestReadLog_SkipsBadLines(t *testing.T) {
	log := strings.Join([]string{
		`{"type":"selection.changed","node_id":"a"}`,
		``,
		`garbage`,
		`{"type":"unknown.kind"}`,
		`{"type":"error","message":"boom","severity":"error"}`,
	}, "\n")

	evs, err := ReadLog(strings.NewReader(log))
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("read %d events, want 2", len(evs))
	}
	if evs[1].(*ErrorEvent).Message != "boom" {
		t.Errorf("second event = %+v", evs[1])
	}
}
