// Package layout places new mind map nodes around their parent.
//
// A new child fans out from the line running grandparent to parent: the first
// child continues straight along it, later children alternate to either side
// at growing multiples of 30 degrees. A small random jitter keeps the fan from
// looking mechanical.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

// RootFallback is where a new child of the root lands, since the root has
// no grandparent to take a direction from.
var RootFallback = geometry.Pt(200, 200)

const (
	// fanStep is the angular distance between adjacent fan levels.
	fanStep = math.Pi / 6
	// jitterScale bounds the random jitter to a fraction of a radian.
	jitterScale = math.Pi / 32
)

// Jitter is the randomness source of an Engine. Jitter returns a value in
// [-1, 1].
type Jitter interface {
	Jitter() float64
}

// JitterFunc adapts a plain function to Jitter.
type JitterFunc func() float64

// Jitter calls f.
func (f JitterFunc) Jitter() float64 { return f() }

// Zero is a Jitter that always returns 0. Layouts become deterministic.
var Zero Jitter = JitterFunc(func() float64 { return 0 })

// NewRandom returns a seeded Jitter.
func NewRandom(seed uint64) Jitter {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return JitterFunc(func() float64 { return rng.Float64()*2 - 1 })
}

// Engine computes positions for new nodes.
type Engine struct {
	src Jitter
}

// New returns an engine drawing jitter from src. A nil src means Zero.
func New(src Jitter) *Engine {
	if src == nil {
		src = Zero
	}
	return &Engine{src: src}
}

// PositionForNewChild returns where the next child of parent should go,
// length units away from it.
func (e *Engine) PositionForNewChild(m *mesh.Mesh, parent mesh.NodeID, length float64) (geometry.Point, error) {
	p, ok := m.Node(parent)
	if !ok {
		return geometry.Point{}, fmt.Errorf("position for child of %s: %w", parent, mesh.ErrNotFound)
	}

	gid, ok := m.ParentOf(parent)
	if !ok {
		return RootFallback, nil
	}
	grandparent, ok := m.Node(gid)
	if !ok {
		return RootFallback, nil
	}

	base := geometry.AngleBetween(grandparent.Position, p.Position)
	index := len(m.Children(parent))
	return geometry.PointAt(p.Position, length, e.AngleForChildAtIndex(index, base)), nil
}

// AngleForChildAtIndex returns the direction of the child at index within
// the fan around baseAngle.
func (e *Engine) AngleForChildAtIndex(index int, baseAngle float64) float64 {
	jitter := e.src.Jitter() * jitterScale
	if index == 0 {
		return baseAngle + jitter
	}

	level := float64((index + 1) / 2)
	polarity := 1.0
	if index%2 == 0 {
		polarity = -1
	}
	return baseAngle + polarity*(fanStep+jitter)*level
}
