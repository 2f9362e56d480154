// Package viewport maps between model and screen coordinates and turns
// pointer gestures into pans, zooms and node drags.
//
// Screen positions are computed as
//
//	screen = model*zoom + container/2 + pan + dragOffset
//
// where dragOffset is the live translation of an in-progress canvas pan.
package viewport

import (
	"math"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/selection"
)

// Zoom bounds and the visual width of a node in model units.
const (
	MinZoom   = 0.1
	MaxZoom   = 2.0
	NodeWidth = 100
)

// Gesture is the interpretation chosen for the current drag.
type Gesture int

const (
	GestureIdle Gesture = iota
	GestureNode
	GesturePan
)

func (g Gesture) String() string {
	switch g {
	case GestureIdle:
		return "idle"
	case GestureNode:
		return "node"
	case GesturePan:
		return "pan"
	default:
		return "unknown"
	}
}

// pinchAnchor holds the zoom and pan captured when a pinch began.
type pinchAnchor struct {
	zoom float64
	pan  geometry.Vector
}

// Controller holds the viewport transform and the state of the gesture in
// progress.
type Controller struct {
	pan        geometry.Vector
	zoom       float64
	dragOffset geometry.Vector

	mode            Gesture
	lastTranslation geometry.Vector

	pinch *pinchAnchor
}

// New returns a controller at zoom 1 with no pan.
func New() *Controller {
	return &Controller{zoom: 1}
}

// Pan returns the committed pan offset.
func (c *Controller) Pan() geometry.Vector { return c.pan }

// Zoom returns the zoom scale.
func (c *Controller) Zoom() float64 { return c.zoom }

// DragOffset returns the live offset of an in-progress canvas pan.
func (c *Controller) DragOffset() geometry.Vector { return c.dragOffset }

// Mode returns how the current drag is being interpreted.
func (c *Controller) Mode() Gesture { return c.mode }

// Pinching reports whether a pinch anchor is held.
func (c *Controller) Pinching() bool { return c.pinch != nil }

// Reset returns to zoom 1 with no pan and drops any gesture state.
func (c *Controller) Reset() {
	*c = Controller{zoom: 1}
}

// PanBy shifts the committed pan by v.
func (c *Controller) PanBy(v geometry.Vector) {
	c.pan = c.pan.Add(v)
}

// CenterOn pans so that model point p lands in the middle of the container.
func (c *Controller) CenterOn(p geometry.Point) {
	c.pan = p.Scale(-c.zoom).Vector()
}

// ModelToScreen converts a model point to screen space.
func (c *Controller) ModelToScreen(p geometry.Point, container geometry.Size) geometry.Point {
	return p.Scale(c.zoom).
		CenteredIn(container).
		Add(c.pan).
		Add(c.dragOffset)
}

// ScreenToModel is the inverse of ModelToScreen.
func (c *Controller) ScreenToModel(p geometry.Point, container geometry.Size) geometry.Point {
	v := p.Sub(container.Center()).
		Add(c.pan.Scale(-1)).
		Add(c.dragOffset.Scale(-1))
	return v.Scale(1 / c.zoom).Point()
}

// HitTest returns the first node, in store order, whose center is within
// half a node width of the screen point. Distances are measured in model
// units and ignore any live pan offset.
func (c *Controller) HitTest(m *mesh.Mesh, at geometry.Point, container geometry.Size) (mesh.NodeID, bool) {
	for _, n := range m.Nodes() {
		center := n.Position.Scale(c.zoom).CenteredIn(container).Add(c.pan)
		if geometry.Distance(at, center)/c.zoom < NodeWidth/2 {
			return n.ID, true
		}
	}
	return mesh.NodeID{}, false
}

// DragChanged handles one update of a drag that began at start and has
// moved by translation. The first update decides, by hit testing start,
// whether the drag moves a node or pans the canvas. A node hit selects the
// node and starts a drag session.
func (c *Controller) DragChanged(m *mesh.Mesh, sel *selection.Session, start geometry.Point, translation geometry.Vector, container geometry.Size) {
	if c.mode == GestureIdle {
		if id, ok := c.HitTest(m, start, container); ok {
			sel.Select(m, id)
			sel.StartDrag(m)
			c.mode = GestureNode
		} else {
			c.mode = GesturePan
		}
	}
	c.lastTranslation = translation

	switch c.mode {
	case GestureNode:
		sel.ApplyTranslation(m, translation.Scale(1/c.zoom), false)
	case GesturePan:
		c.dragOffset = translation
	}
}

// DragEnded finishes the drag. A node drag is snapped to the grid and the
// drag session stopped; a pan is committed into the pan offset.
func (c *Controller) DragEnded(m *mesh.Mesh, sel *selection.Session, translation geometry.Vector) {
	mode := c.mode
	c.mode = GestureIdle
	c.dragOffset = geometry.Vector{}
	c.lastTranslation = geometry.Vector{}

	switch mode {
	case GestureNode:
		sel.ApplyTranslation(m, translation.Scale(1/c.zoom), true)
		sel.StopDrag()
	case GesturePan:
		c.pan = c.pan.Add(translation)
	}
}

// CancelGesture ends whatever gesture is in progress as if it had ended at
// its last reported position, and drops any pinch anchor.
func (c *Controller) CancelGesture(m *mesh.Mesh, sel *selection.Session) {
	if c.mode != GestureIdle {
		c.DragEnded(m, sel, c.lastTranslation)
	}
	c.pinch = nil
}

// PinchChanged handles one update of a pinch with cumulative scale value.
// The first update captures the zoom and pan to scale from.
func (c *Controller) PinchChanged(value float64) {
	if c.pinch == nil {
		c.pinch = &pinchAnchor{zoom: c.zoom, pan: c.pan}
	}
	c.applyScale(value)
}

// PinchEnded applies the final value and releases the anchor.
func (c *Controller) PinchEnded(value float64) {
	c.applyScale(value)
	c.pinch = nil
}

func (c *Controller) applyScale(value float64) {
	initial := MaxZoom
	if c.pinch != nil {
		initial = c.pinch.zoom
	}
	scale, clamped := ClampScale(value, initial)
	c.zoom = scale
	if !clamped && c.pinch != nil {
		c.pan = c.pinch.pan.Scale(value)
	}
}

// ClampScale multiplies the magnitude of value by initial and clamps the
// result to [MinZoom, MaxZoom]. It reports whether clamping changed it.
// A NaN product keeps initial, itself held within bounds.
func ClampScale(value, initial float64) (float64, bool) {
	raw := math.Abs(value) * initial
	if math.IsNaN(raw) {
		if math.IsNaN(initial) {
			return MaxZoom, true
		}
		return math.Max(MinZoom, math.Min(MaxZoom, initial)), true
	}
	scaled := math.Max(MinZoom, math.Min(MaxZoom, raw))
	return scaled, raw != scaled
}
