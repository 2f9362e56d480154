// Package selection tracks which node is selected and the drag session that
// moves it.
package selection

import (
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

// GridSize is the snapping grid applied when a drag ends.
const GridSize = 10

// State is the phase of a selection session.
type State int

const (
	Idle State = iota
	Selected
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// DragInfo records where a node was when its drag started.
type DragInfo struct {
	ID               mesh.NodeID
	OriginalPosition geometry.Point
}

// Session holds the selection and any active drag. The zero value is an
// idle session.
type Session struct {
	selected    []mesh.NodeID
	editingText string
	drags       []DragInfo
	dragging    bool
}

// New returns an idle session.
func New() *Session {
	return &Session{}
}

// State returns the current phase.
func (s *Session) State() State {
	switch {
	case s.dragging:
		return Dragging
	case len(s.selected) > 0:
		return Selected
	default:
		return Idle
	}
}

// Select makes id the only selected node and copies its text into the
// editing snapshot. An unknown id leaves the session unchanged.
func (s *Session) Select(m *mesh.Mesh, id mesh.NodeID) bool {
	n, ok := m.Node(id)
	if !ok {
		return false
	}
	s.selected = []mesh.NodeID{id}
	s.editingText = n.Text
	return true
}

// Clear drops the selection and any drag.
func (s *Session) Clear() {
	s.selected = nil
	s.editingText = ""
	s.drags = nil
	s.dragging = false
}

// Prune drops selected ids that no longer exist in m.
func (s *Session) Prune(m *mesh.Mesh) {
	kept := s.selected[:0]
	for _, id := range s.selected {
		if _, ok := m.Node(id); ok {
			kept = append(kept, id)
		}
	}
	s.selected = kept

	drags := s.drags[:0]
	for _, d := range s.drags {
		if _, ok := m.Node(d.ID); ok {
			drags = append(drags, d)
		}
	}
	s.drags = drags

	if len(s.selected) == 0 {
		s.Clear()
	}
}

// StartDrag snapshots the position of every selected node. Calling it while
// already dragging takes a fresh snapshot. It reports false when nothing is
// selected.
func (s *Session) StartDrag(m *mesh.Mesh) bool {
	if len(s.selected) == 0 {
		return false
	}
	s.drags = s.drags[:0]
	for _, id := range s.selected {
		if n, ok := m.Node(id); ok {
			s.drags = append(s.drags, DragInfo{ID: id, OriginalPosition: n.Position})
		}
	}
	s.dragging = true
	return true
}

// ApplyTranslation moves every dragged node to its original position plus
// delta, optionally snapped to the grid. Original positions are never
// changed, so repeated calls do not accumulate.
func (s *Session) ApplyTranslation(m *mesh.Mesh, delta geometry.Vector, snapToGrid bool) {
	for _, d := range s.drags {
		to := d.OriginalPosition.Add(delta)
		if snapToGrid {
			to = geometry.SnapToGrid(to, GridSize)
		}
		// Nodes deleted mid drag are skipped.
		_ = m.MoveNode(d.ID, to)
	}
}

// StopDrag ends the drag and keeps the selection.
func (s *Session) StopDrag() {
	s.drags = nil
	s.dragging = false
}

// SelectedIDs returns a copy of the selected ids.
func (s *Session) SelectedIDs() []mesh.NodeID {
	return append([]mesh.NodeID(nil), s.selected...)
}

// IsSelected reports whether id is selected.
func (s *Session) IsSelected(id mesh.NodeID) bool {
	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// OnlySelected returns the selected node when exactly one is selected.
func (s *Session) OnlySelected(m *mesh.Mesh) (mesh.Node, bool) {
	if len(s.selected) != 1 {
		return mesh.Node{}, false
	}
	return m.Node(s.selected[0])
}

// SelectedNodes returns the selected nodes still present in m.
func (s *Session) SelectedNodes(m *mesh.Mesh) []mesh.Node {
	var out []mesh.Node
	for _, id := range s.selected {
		if n, ok := m.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// DragInfos returns a copy of the active drag snapshot.
func (s *Session) DragInfos() []DragInfo {
	return append([]DragInfo(nil), s.drags...)
}

// EditingText returns the text being edited for the selected node.
func (s *Session) EditingText() string {
	return s.editingText
}

// SetEditingText replaces the editing snapshot.
func (s *Session) SetEditingText(text string) {
	s.editingText = text
}
