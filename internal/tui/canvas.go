package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/viewport"
)

// cellKind selects the style a grid cell is drawn with.
type cellKind uint8

const (
	cellBlank cellKind = iota
	cellLink
	cellNode
	cellRoot
	cellSelected
)

// charGrid is a 2D character grid for rendering.
type charGrid struct {
	width  int
	height int
	cells  [][]rune
	kinds  [][]cellKind
}

// newGrid creates a new character grid filled with spaces.
func newGrid(width, height int) *charGrid {
	cells := make([][]rune, height)
	kinds := make([][]cellKind, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]rune, width)
		kinds[y] = make([]cellKind, width)
		for x := 0; x < width; x++ {
			cells[y][x] = ' '
		}
	}
	return &charGrid{
		width:  width,
		height: height,
		cells:  cells,
		kinds:  kinds,
	}
}

// writeRune writes a single rune at the given position.
func (g *charGrid) writeRune(x, y int, r rune, kind cellKind) {
	if x >= 0 && x < g.width && y >= 0 && y < g.height {
		g.cells[y][x] = r
		g.kinds[y][x] = kind
	}
}

// writeString writes a string starting at the given position.
func (g *charGrid) writeString(x, y int, s string, kind cellKind) {
	i := 0
	for _, r := range s {
		g.writeRune(x+i, y, r, kind)
		i++
	}
}

// drawLine draws a link between two cells, clipped to the grid.
func (g *charGrid) drawLine(x0, y0, x1, y1 float64) {
	x0, y0, x1, y1, ok := clipLine(x0, y0, x1, y1, float64(g.width-1), float64(g.height-1))
	if !ok {
		return
	}
	ax, ay := int(math.Round(x0)), int(math.Round(y0))
	bx, by := int(math.Round(x1)), int(math.Round(y1))
	r := lineRune(bx-ax, by-ay)

	// Bresenham
	dx, dy := abs(bx-ax), -abs(by-ay)
	sx, sy := sign(bx-ax), sign(by-ay)
	e := dx + dy
	for {
		g.writeRune(ax, ay, r, cellLink)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += sx
		}
		if e2 <= dx {
			e += dx
			ay += sy
		}
	}
}

// String converts the grid to a string, styling runs of equal kind.
func (g *charGrid) String() string {
	lines := make([]string, 0, g.height)
	for y, row := range g.cells {
		var b strings.Builder
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && g.kinds[y][x] == g.kinds[y][start] {
				continue
			}
			b.WriteString(styleForCell(g.kinds[y][start]).Render(string(row[start:x])))
			start = x
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// Plain returns the grid text without styling.
func (g *charGrid) Plain() string {
	lines := make([]string, 0, g.height)
	for _, row := range g.cells {
		lines = append(lines, string(row))
	}
	return strings.Join(lines, "\n")
}

// lineRune picks a box-drawing rune for a link's overall direction. Screen
// y grows downward.
func lineRune(dx, dy int) rune {
	adx, ady := abs(dx), abs(dy)
	switch {
	case ady*2 < adx:
		return '─'
	case adx*2 < ady:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// clipLine clips a segment to the rectangle [0,maxX]x[0,maxY] (Liang-Barsky).
func clipLine(x0, y0, x1, y1, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	if maxX < 0 || maxY < 0 {
		return 0, 0, 0, 0, false
	}
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float64{
		{-dx, x0},
		{dx, maxX - x0},
		{-dy, y0},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// renderCanvas draws the document as the viewport currently sees it. Links
// are drawn first so node labels sit on top.
func (m model) renderCanvas(cols, rows int) *charGrid {
	grid := newGrid(cols, rows)
	ed := m.editor
	view := ed.Viewport()
	container := m.container()

	toCell := func(p geometry.Point) (float64, float64) {
		s := view.ModelToScreen(p, container)
		return s.X/m.cell.Width - 0.5, s.Y/m.cell.Height - 0.5
	}

	for _, l := range ed.Mesh().Links() {
		x0, y0 := toCell(l.Start)
		x1, y1 := toCell(l.End)
		grid.drawLine(x0, y0, x1, y1)
	}

	width := labelWidth(view.Zoom(), m.cell.Width)
	rootID := ed.Mesh().RootID()
	for _, n := range ed.Mesh().Nodes() {
		x, y := toCell(n.Position)
		col, row := int(math.Round(x)), int(math.Round(y))
		if row < 0 || row >= rows {
			continue
		}

		label := "(" + events.Truncate(n.Text, width-2) + ")"
		kind := cellNode
		switch {
		case ed.Selection().IsSelected(n.ID):
			kind = cellSelected
		case n.ID == rootID:
			kind = cellRoot
		}
		grid.writeString(col-len([]rune(label))/2, row, label, kind)
	}
	return grid
}

// labelWidth is the number of columns a node spans at zoom, at least 3.
func labelWidth(zoom, cellWidth float64) int {
	return max(3, int(viewport.NodeWidth*zoom/cellWidth))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// styleForCell returns the lipgloss style for a cell kind.
func styleForCell(kind cellKind) lipgloss.Style {
	switch kind {
	case cellLink:
		return canvasStyles.Link
	case cellNode:
		return canvasStyles.Node
	case cellRoot:
		return canvasStyles.Root
	case cellSelected:
		return canvasStyles.Selected
	default:
		return canvasStyles.Blank
	}
}
