package mesh

import "github.com/npratt/mindmesh/internal/geometry"

// Sample returns a small demonstration mesh: a root with three children
// spread evenly around it.
func Sample() *Mesh {
	m := New()
	_ = m.UpdateText(m.RootID(), "every human has a right to")
	for _, child := range []struct {
		angle float64
		text  string
	}{
		{0, "shelter"},
		{120, "food"},
		{240, "education"},
	} {
		at := geometry.PointAt(geometry.Origin, 200, geometry.Degrees(child.angle))
		id, _ := m.AddChildAt(m.RootID(), at)
		_ = m.UpdateText(id, child.text)
	}
	return m
}
