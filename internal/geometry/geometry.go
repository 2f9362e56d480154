// Package geometry provides the point, vector and angle math shared by the
// mind map layout, drag and viewport code. Everything here is pure.
package geometry

import "math"

// verticalEpsilon replaces a near-zero horizontal delta in AngleBetween.
const verticalEpsilon = 0.001

// Point is a location in model or screen space.
type Point struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// Vector is a displacement, such as a gesture translation or pan offset.
type Vector struct {
	DX float64
	DY float64
}

// Size is the extent of a container, such as the visible canvas.
type Size struct {
	Width  float64
	Height float64
}

// Origin is the zero point.
var Origin = Point{}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Vec is shorthand for Vector{DX: dx, DY: dy}.
func Vec(dx, dy float64) Vector {
	return Vector{DX: dx, DY: dy}
}

// Add translates p by v.
func (p Point) Add(v Vector) Point {
	return Point{X: p.X + v.DX, Y: p.Y + v.DY}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Vector {
	return Vector{DX: p.X - q.X, DY: p.Y - q.Y}
}

// Scale multiplies both coordinates by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// CenteredIn offsets p by half of the container, so that the model origin
// lands in the middle of the container.
func (p Point) CenteredIn(container Size) Point {
	return Point{X: p.X + container.Width/2, Y: p.Y + container.Height/2}
}

// Vector returns p as a displacement from the origin.
func (p Point) Vector() Vector {
	return Vector{DX: p.X, DY: p.Y}
}

// Add sums two vectors.
func (v Vector) Add(w Vector) Vector {
	return Vector{DX: v.DX + w.DX, DY: v.DY + w.DY}
}

// Scale multiplies both components by s.
func (v Vector) Scale(s float64) Vector {
	return Vector{DX: v.DX * s, DY: v.DY * s}
}

// IsZero reports whether v has no length.
func (v Vector) IsZero() bool {
	return v.DX == 0 && v.DY == 0
}

// Point returns v as a point offset from the origin.
func (v Vector) Point() Point {
	return Point{X: v.DX, Y: v.DY}
}

// Center returns the midpoint of the container.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PointAt returns the point at radius from center along angle (radians).
func PointAt(center Point, radius, angle float64) Point {
	return Point{
		X: center.X + radius*math.Cos(angle),
		Y: center.Y + radius*math.Sin(angle),
	}
}

// AngleBetween returns the angle in radians of the segment from a to b.
//
// A near-vertical segment has its horizontal delta clamped to a small
// epsilon, so the result is always finite. Segments pointing left are
// reflected so the angle covers the full circle.
func AngleBetween(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if math.Abs(dx) < verticalEpsilon {
		dx = verticalEpsilon
	}
	angle := math.Atan(dy / math.Abs(dx))
	if dx > 0 {
		return angle
	}
	return math.Pi - angle
}

// SnapToGrid rounds each coordinate of p to the nearest multiple of grid,
// breaking ties to even. A non-positive grid returns p unchanged.
func SnapToGrid(p Point, grid float64) Point {
	if grid <= 0 {
		return p
	}
	return Point{
		X: math.RoundToEven(p.X/grid) * grid,
		Y: math.RoundToEven(p.Y/grid) * grid,
	}
}

// Degrees converts degrees to radians.
func Degrees(deg float64) float64 {
	return deg * math.Pi / 180
}
