// Package events defines the notifications an editing session publishes:
// document lifecycle, node mutations, selection and viewport changes. They
// feed the activity log, the session state file and the status line.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Document lifecycle
	EventDocumentOpened   EventType = "document.opened"
	EventDocumentSaved    EventType = "document.saved"
	EventDocumentReloaded EventType = "document.reloaded"

	// Node mutations
	EventNodeAdded    EventType = "node.added"
	EventNodeMoved    EventType = "node.moved"
	EventNodeText     EventType = "node.text"
	EventNodesDeleted EventType = "nodes.deleted"

	// Session view state
	EventSelectionChanged EventType = "selection.changed"
	EventViewportChanged  EventType = "viewport.changed"

	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceEditor  = "editor"
	SourceStorage = "storage"
	SourceWatcher = "watcher"
)

// Event is implemented by every event type.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// Emitter accepts events. Router is the production implementation.
type Emitter interface {
	Emit(Event)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// DocumentOpenedEvent is emitted once a document is loaded into an editor.
// Restored is false when loading failed and a fresh document was used.
type DocumentOpenedEvent struct {
	BaseEvent
	Path     string `json:"path"`
	Nodes    int    `json:"nodes"`
	Restored bool   `json:"restored"`
}

// DocumentSavedEvent is emitted after a successful save.
type DocumentSavedEvent struct {
	BaseEvent
	Path       string `json:"path"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Revision   uint64 `json:"revision"`
	DurationMs int64  `json:"duration_ms"`
}

// DocumentReloadedEvent is emitted when the document is replaced after an
// external change to its file.
type DocumentReloadedEvent struct {
	BaseEvent
	Path  string `json:"path"`
	Nodes int    `json:"nodes"`
}

// NodeAddedEvent is emitted for a new child or sibling.
type NodeAddedEvent struct {
	BaseEvent
	NodeID   string  `json:"node_id"`
	ParentID string  `json:"parent_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Sibling  bool    `json:"sibling,omitempty"`
}

// NodeMovedEvent is emitted when a node drag ends.
type NodeMovedEvent struct {
	BaseEvent
	NodeID string  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NodeTextEvent is emitted when a node's text is committed.
type NodeTextEvent struct {
	BaseEvent
	NodeID string `json:"node_id"`
	Text   string `json:"text"`
}

// NodesDeletedEvent is emitted after a delete. Orphans counts the nodes left
// without a parent afterwards.
type NodesDeletedEvent struct {
	BaseEvent
	NodeIDs []string `json:"node_ids"`
	Orphans int      `json:"orphans"`
}

// SelectionChangedEvent is emitted when the selected node changes. An empty
// NodeID means the selection was cleared.
type SelectionChangedEvent struct {
	BaseEvent
	NodeID string `json:"node_id,omitempty"`
}

// ViewportChangedEvent is emitted when a pan or zoom is committed.
type ViewportChangedEvent struct {
	BaseEvent
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for failures the session recovered from, such as a
// failed save or an unreadable document.
type ErrorEvent struct {
	BaseEvent
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewEditorEvent creates a BaseEvent with the editor as the source.
func NewEditorEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceEditor)
}

// NewStorageEvent creates a BaseEvent with storage as the source.
func NewStorageEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceStorage)
}
