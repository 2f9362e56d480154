package layout

import (
	"math/rand/v2"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

const (
	sampleRadius      = 300
	sampleGenerations = 6
	sampleGrowth      = 100
)

var sampleLabels = []string{"A", "B", "C", "D", "E", "F"}

// SampleProcedural grows a larger demonstration mesh: four first level
// children around the root, then one to three children per node for each
// following generation, each generation placed further out.
func SampleProcedural(rng *rand.Rand) *mesh.Mesh {
	m := mesh.New()
	e := New(JitterFunc(func() float64 { return rng.Float64()*2 - 1 }))

	for i := range 4 {
		at := geometry.PointAt(geometry.Origin, sampleRadius, geometry.Degrees(float64(i*90+30)))
		id, _ := m.AddChildAt(m.RootID(), at)
		_ = m.UpdateText(id, label(0, i))
		grow(m, e, rng, id, 1, sampleRadius+sampleGrowth)
	}
	return m
}

func grow(m *mesh.Mesh, e *Engine, rng *rand.Rand, parent mesh.NodeID, generation int, distance float64) {
	if generation >= sampleGenerations {
		return
	}
	count := rng.IntN(3) + 1
	for i := range count {
		at, err := e.PositionForNewChild(m, parent, distance)
		if err != nil {
			return
		}
		id, err := m.AddChildAt(parent, at)
		if err != nil {
			return
		}
		_ = m.UpdateText(id, label(generation, i))
		grow(m, e, rng, id, generation+1, distance+sampleGrowth)
	}
}

func label(generation, index int) string {
	return sampleLabels[generation] + string(rune('1'+index))
}
