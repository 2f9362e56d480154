// Package editor is one open mind map document: the mesh plus the
// selection, viewport and layout state that edit it. Every user intent
// enters through an Editor method and every applied change is published as
// an event.
package editor

import (
	"fmt"

	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/layout"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/selection"
	"github.com/npratt/mindmesh/internal/viewport"
)

// DefaultChildDistance is how far from its parent a new node is placed.
const DefaultChildDistance = 300

// Editor owns a mesh and the session state around it. It is not safe for
// concurrent use.
type Editor struct {
	mesh   *mesh.Mesh
	sel    *selection.Session
	view   *viewport.Controller
	layout *layout.Engine

	emitter       events.Emitter
	childDistance float64
	savedRevision uint64
}

// Option configures an Editor.
type Option func(*Editor)

// WithEmitter publishes change events to em.
func WithEmitter(em events.Emitter) Option {
	return func(e *Editor) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithLayout places new nodes with engine.
func WithLayout(engine *layout.Engine) Option {
	return func(e *Editor) {
		if engine != nil {
			e.layout = engine
		}
	}
}

// WithChildDistance sets the distance between a new node and its parent.
func WithChildDistance(d float64) Option {
	return func(e *Editor) {
		if d > 0 {
			e.childDistance = d
		}
	}
}

// New returns an editor for m. The document starts out clean.
func New(m *mesh.Mesh, opts ...Option) *Editor {
	e := &Editor{
		mesh:          m,
		sel:           selection.New(),
		view:          viewport.New(),
		layout:        layout.New(layout.Zero),
		emitter:       events.Discard,
		childDistance: DefaultChildDistance,
		savedRevision: m.Revision(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mesh returns the document.
func (e *Editor) Mesh() *mesh.Mesh { return e.mesh }

// Selection returns the selection session.
func (e *Editor) Selection() *selection.Session { return e.sel }

// Viewport returns the viewport controller.
func (e *Editor) Viewport() *viewport.Controller { return e.view }

// Revision returns the document revision.
func (e *Editor) Revision() uint64 { return e.mesh.Revision() }

// Dirty reports whether the document changed since the last save.
func (e *Editor) Dirty() bool {
	return e.mesh.Revision() != e.savedRevision
}

// MarkSaved records that the document at revision rev was written.
func (e *Editor) MarkSaved(rev uint64) {
	e.savedRevision = rev
}

// Snapshot returns the persisted form of the document with its revision.
func (e *Editor) Snapshot() (mesh.Snapshot, uint64) {
	return e.mesh.Snapshot(), e.mesh.Revision()
}

// Replace swaps in a new document, such as after an external reload. Any
// gesture is cancelled against the old document and the selection cleared.
func (e *Editor) Replace(m *mesh.Mesh) {
	e.view.CancelGesture(e.mesh, e.sel)
	hadSelection := len(e.sel.SelectedIDs()) > 0
	e.sel.Clear()
	e.mesh = m
	e.savedRevision = m.Revision()
	if hadSelection {
		e.emitSelection()
	}
}

// CanAddChild reports whether exactly one node is selected.
func (e *Editor) CanAddChild() bool {
	_, ok := e.sel.OnlySelected(e.mesh)
	return ok
}

// CanAddSibling reports whether exactly one node with a parent is selected.
func (e *Editor) CanAddSibling() bool {
	n, ok := e.sel.OnlySelected(e.mesh)
	if !ok || n.ID == e.mesh.RootID() {
		return false
	}
	_, ok = e.mesh.ParentOf(n.ID)
	return ok
}

// CanDelete reports whether a deletable node is selected.
func (e *Editor) CanDelete() bool {
	for _, id := range e.sel.SelectedIDs() {
		if id != e.mesh.RootID() {
			return true
		}
	}
	return false
}

// AddChild places a new child of the selected node and selects it.
func (e *Editor) AddChild() (mesh.NodeID, bool) {
	parent, ok := e.sel.OnlySelected(e.mesh)
	if !ok {
		return mesh.NodeID{}, false
	}

	at, err := e.layout.PositionForNewChild(e.mesh, parent.ID, e.childDistance)
	if err != nil {
		return mesh.NodeID{}, false
	}
	id, err := e.mesh.AddChildAt(parent.ID, at)
	if err != nil {
		return mesh.NodeID{}, false
	}

	e.emitAdded(id, parent.ID, at, false)
	e.sel.Select(e.mesh, id)
	e.emitSelection()
	return id, true
}

// AddSibling adds a new child of the selected node's parent, places it in
// the parent's fan and selects it.
func (e *Editor) AddSibling() (mesh.NodeID, bool) {
	n, ok := e.sel.OnlySelected(e.mesh)
	if !ok {
		return mesh.NodeID{}, false
	}
	id, ok := e.mesh.AddSibling(n.ID)
	if !ok {
		return mesh.NodeID{}, false
	}

	parent, _ := e.mesh.ParentOf(id)
	at, err := e.layout.PositionForNewChild(e.mesh, parent, e.childDistance)
	if err == nil {
		_ = e.mesh.MoveNode(id, at)
	}
	placed, _ := e.mesh.Node(id)

	e.emitAdded(id, parent, placed.Position, true)
	e.sel.Select(e.mesh, id)
	e.emitSelection()
	return id, true
}

// DeleteSelected removes the selected nodes, skipping the root, and returns
// how many were removed.
func (e *Editor) DeleteSelected() int {
	ids := e.sel.SelectedIDs()
	removed := e.mesh.DeleteNodes(ids...)
	if removed == 0 {
		return 0
	}

	var deleted []string
	for _, id := range ids {
		if _, ok := e.mesh.Node(id); !ok {
			deleted = append(deleted, id.String())
		}
	}
	e.sel.Prune(e.mesh)

	e.emitter.Emit(&events.NodesDeletedEvent{
		BaseEvent: events.NewEditorEvent(events.EventNodesDeleted),
		NodeIDs:   deleted,
		Orphans:   len(e.mesh.Orphans()),
	})
	e.emitSelection()
	return removed
}

// SetText replaces the text of the selected node.
func (e *Editor) SetText(text string) error {
	n, ok := e.sel.OnlySelected(e.mesh)
	if !ok {
		return fmt.Errorf("set text: no single node selected")
	}
	if err := e.mesh.UpdateText(n.ID, text); err != nil {
		return err
	}
	e.sel.SetEditingText(text)

	e.emitter.Emit(&events.NodeTextEvent{
		BaseEvent: events.NewEditorEvent(events.EventNodeText),
		NodeID:    n.ID.String(),
		Text:      text,
	})
	return nil
}

// Select makes id the selected node.
func (e *Editor) Select(id mesh.NodeID) bool {
	if !e.sel.Select(e.mesh, id) {
		return false
	}
	e.emitSelection()
	return true
}

// Deselect clears the selection.
func (e *Editor) Deselect() {
	if len(e.sel.SelectedIDs()) == 0 {
		return
	}
	e.sel.Clear()
	e.emitSelection()
}

// DragChanged forwards a drag update to the viewport.
func (e *Editor) DragChanged(start geometry.Point, translation geometry.Vector, container geometry.Size) {
	wasIdle := e.view.Mode() == viewport.GestureIdle
	e.view.DragChanged(e.mesh, e.sel, start, translation, container)
	if wasIdle && e.view.Mode() == viewport.GestureNode {
		e.emitSelection()
	}
}

// DragEnded finishes a drag gesture.
func (e *Editor) DragEnded(translation geometry.Vector) {
	mode := e.view.Mode()
	e.view.DragEnded(e.mesh, e.sel, translation)
	e.gestureFinished(mode)
}

// CancelGesture ends any gesture in progress at its last position.
func (e *Editor) CancelGesture() {
	mode := e.view.Mode()
	pinching := e.view.Pinching()
	e.view.CancelGesture(e.mesh, e.sel)
	e.gestureFinished(mode)
	if pinching && mode != viewport.GesturePan {
		e.emitViewport()
	}
}

func (e *Editor) gestureFinished(mode viewport.Gesture) {
	switch mode {
	case viewport.GestureNode:
		for _, n := range e.sel.SelectedNodes(e.mesh) {
			e.emitter.Emit(&events.NodeMovedEvent{
				BaseEvent: events.NewEditorEvent(events.EventNodeMoved),
				NodeID:    n.ID.String(),
				X:         n.Position.X,
				Y:         n.Position.Y,
			})
		}
	case viewport.GesturePan:
		e.emitViewport()
	}
}

// PinchChanged forwards a pinch update to the viewport.
func (e *Editor) PinchChanged(value float64) {
	e.view.PinchChanged(value)
}

// PinchEnded finishes a pinch.
func (e *Editor) PinchEnded(value float64) {
	e.view.PinchEnded(value)
	e.emitViewport()
}

// Zoom applies a complete pinch of the given factor, as a wheel step does.
func (e *Editor) Zoom(factor float64) {
	e.view.PinchChanged(factor)
	e.PinchEnded(factor)
}

// PanBy shifts the canvas by v screen units.
func (e *Editor) PanBy(v geometry.Vector) {
	e.view.PanBy(v)
	e.emitViewport()
}

// ResetView returns the viewport to its initial transform.
func (e *Editor) ResetView() {
	e.view.Reset()
	e.emitViewport()
}

// CenterOnSelection pans so the selected node sits in the middle of the
// canvas. It reports whether a single node was selected.
func (e *Editor) CenterOnSelection() bool {
	n, ok := e.sel.OnlySelected(e.mesh)
	if !ok {
		return false
	}
	e.view.CenterOn(n.Position)
	e.emitViewport()
	return true
}

// RestoreView applies a saved zoom and pan, such as from a previous
// session. The zoom is clamped to the viewport bounds.
func (e *Editor) RestoreView(zoom float64, pan geometry.Vector) {
	e.view.Reset()
	scale, _ := viewport.ClampScale(zoom, 1)
	e.view.PinchChanged(scale)
	e.view.PinchEnded(scale)
	e.view.PanBy(pan)
}

func (e *Editor) emitAdded(id, parent mesh.NodeID, at geometry.Point, sibling bool) {
	e.emitter.Emit(&events.NodeAddedEvent{
		BaseEvent: events.NewEditorEvent(events.EventNodeAdded),
		NodeID:    id.String(),
		ParentID:  parent.String(),
		X:         at.X,
		Y:         at.Y,
		Sibling:   sibling,
	})
}

func (e *Editor) emitSelection() {
	ev := &events.SelectionChangedEvent{BaseEvent: events.NewEditorEvent(events.EventSelectionChanged)}
	if ids := e.sel.SelectedIDs(); len(ids) == 1 {
		ev.NodeID = ids[0].String()
	}
	e.emitter.Emit(ev)
}

func (e *Editor) emitViewport() {
	pan := e.view.Pan()
	e.emitter.Emit(&events.ViewportChangedEvent{
		BaseEvent: events.NewEditorEvent(events.EventViewportChanged),
		Zoom:      e.view.Zoom(),
		PanX:      pan.DX,
		PanY:      pan.DY,
	})
}
