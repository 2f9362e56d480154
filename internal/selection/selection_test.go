package selection

import (
	"math"
	"testing"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

func TestSelect(t *testing.T) {
	m := mesh.New()
	child, _ := m.AddChildAt(m.RootID(), geometry.Pt(10, 10))
	_ = m.UpdateText(child, "hello")
	s := New()

	if s.State() != Idle {
		t.Fatalf("initial State = %v, want idle", s.State())
	}
	if !s.Select(m, child) {
		t.Fatal("Select returned false")
	}
	if s.State() != Selected {
		t.Errorf("State = %v, want selected", s.State())
	}
	if s.EditingText() != "hello" {
		t.Errorf("EditingText = %q, want %q", s.EditingText(), "hello")
	}
	if !s.IsSelected(child) || s.IsSelected(m.RootID()) {
		t.Error("IsSelected mismatch")
	}
	n, ok := s.OnlySelected(m)
	if !ok || n.ID != child {
		t.Errorf("OnlySelected = %v, %v", n.ID, ok)
	}

	if s.Select(m, mesh.NewNodeID()) {
		t.Error("Select(unknown) returned true")
	}
	if !s.IsSelected(child) {
		t.Error("failed Select changed the selection")
	}

	s.Clear()
	if s.State() != Idle || len(s.SelectedIDs()) != 0 || s.EditingText() != "" {
		t.Error("Clear did not reset the session")
	}
}

func TestDrag_RoundTrip(t *testing.T) {
	m := mesh.New()
	child, _ := m.AddChildAt(m.RootID(), geometry.Pt(13, 27))
	s := New()
	s.Select(m, child)

	if !s.StartDrag(m) {
		t.Fatal("StartDrag returned false")
	}
	if s.State() != Dragging {
		t.Errorf("State = %v, want dragging", s.State())
	}

	s.ApplyTranslation(m, geometry.Vec(45, -8), false)
	s.ApplyTranslation(m, geometry.Vec(0, 0), false)

	n, _ := m.Node(child)
	if n.Position != geometry.Pt(13, 27) {
		t.Errorf("position after zero translation = %+v, want original", n.Position)
	}
	infos := s.DragInfos()
	if len(infos) != 1 || infos[0].OriginalPosition != geometry.Pt(13, 27) {
		t.Errorf("DragInfos = %+v, origin mutated", infos)
	}

	s.StopDrag()
	if s.State() != Selected {
		t.Errorf("State after StopDrag = %v, want selected", s.State())
	}
	if len(s.DragInfos()) != 0 {
		t.Error("drag infos not cleared")
	}
}

func TestApplyTranslation_DoesNotAccumulate(t *testing.T) {
	m := mesh.New()
	child, _ := m.AddChildAt(m.RootID(), geometry.Pt(0, 0))
	s := New()
	s.Select(m, child)
	s.StartDrag(m)

	for i := 0; i < 5; i++ {
		s.ApplyTranslation(m, geometry.Vec(10, 10), false)
	}
	n, _ := m.Node(child)
	if n.Position != geometry.Pt(10, 10) {
		t.Errorf("position = %+v, want (10,10)", n.Position)
	}
}

func TestApplyTranslation_GridSnap(t *testing.T) {
	tests := []struct {
		name  string
		start geometry.Point
		delta geometry.Vector
		want  geometry.Point
	}{
		{"rounds down", geometry.Pt(0, 0), geometry.Vec(14, 3), geometry.Pt(10, 0)},
		{"rounds up", geometry.Pt(0, 0), geometry.Vec(16, 27), geometry.Pt(20, 30)},
		{"half to even down", geometry.Pt(0, 0), geometry.Vec(25, 15), geometry.Pt(20, 20)},
		{"negative", geometry.Pt(-3, 0), geometry.Vec(-14, -36), geometry.Pt(-20, -40)},
		{"fractional origin", geometry.Pt(1.5, 2.5), geometry.Vec(100.2, 0), geometry.Pt(100, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mesh.New()
			child, _ := m.AddChildAt(m.RootID(), tt.start)
			s := New()
			s.Select(m, child)
			s.StartDrag(m)

			s.ApplyTranslation(m, tt.delta, true)

			n, _ := m.Node(child)
			if n.Position != tt.want {
				t.Errorf("position = %+v, want %+v", n.Position, tt.want)
			}
			if math.Mod(n.Position.X, GridSize) != 0 || math.Mod(n.Position.Y, GridSize) != 0 {
				t.Errorf("position %+v is not on the grid", n.Position)
			}
		})
	}
}

func TestStartDrag_NothingSelected(t *testing.T) {
	m := mesh.New()
	s := New()
	if s.StartDrag(m) {
		t.Error("StartDrag with no selection returned true")
	}
	if s.State() != Idle {
		t.Errorf("State = %v, want idle", s.State())
	}
}

func TestStartDrag_Resnapshots(t *testing.T) {
	m := mesh.New()
	child, _ := m.AddChildAt(m.RootID(), geometry.Pt(0, 0))
	s := New()
	s.Select(m, child)
	s.StartDrag(m)
	s.ApplyTranslation(m, geometry.Vec(50, 0), false)

	s.StartDrag(m)
	s.ApplyTranslation(m, geometry.Vec(5, 0), false)

	n, _ := m.Node(child)
	if n.Position != geometry.Pt(55, 0) {
		t.Errorf("position = %+v, want (55,0)", n.Position)
	}
}

func TestPrune(t *testing.T) {
	m := mesh.New()
	child, _ := m.AddChild(m.RootID())
	s := New()
	s.Select(m, child)
	s.StartDrag(m)

	m.DeleteNodes(child)
	s.ApplyTranslation(m, geometry.Vec(10, 0), false)
	s.Prune(m)

	if s.State() != Idle {
		t.Errorf("State = %v, want idle", s.State())
	}
	if len(s.SelectedNodes(m)) != 0 {
		t.Error("deleted node still selected")
	}
}

func TestSetEditingText(t *testing.T) {
	s := New()
	s.SetEditingText("draft")
	if s.EditingText() != "draft" {
		t.Errorf("EditingText = %q, want draft", s.EditingText())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{Selected, "selected"},
		{Dragging, "dragging"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
