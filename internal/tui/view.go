package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/mindmesh/internal/events"
)

const (
	minWidth  = 30
	minHeight = 6
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Handle too small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	canvas := m.renderCanvas(m.width, m.canvasRows()).String()
	return strings.Join([]string{canvas, m.renderStatus(), m.renderFooter()}, "\n")
}

// renderStatus renders the one-line status bar: document, zoom and
// selection on the left, the latest event or error on the right.
func (m model) renderStatus() string {
	ed := m.editor

	name := "untitled"
	if m.store != nil {
		name = filepath.Base(m.store.Path())
	}
	left := styles.Document.Render(" " + name)
	if ed.Dirty() {
		left += styles.Dirty.Render(" *")
	}
	left += styles.Status.Render(fmt.Sprintf("  %d nodes  ", ed.Mesh().NodeCount()))
	left += styles.Zoom.Render(fmt.Sprintf("%.0f%%", ed.Viewport().Zoom()*100))
	if n, ok := ed.Selection().OnlySelected(ed.Mesh()); ok {
		left += styles.Selected.Render("  ▸ " + events.Truncate(n.Text, 24))
	}

	var right string
	switch {
	case m.saving:
		right = m.spinner.View() + styles.Status.Render(" saving")
	case m.lastErr != "":
		right = styles.Error.Render(events.Truncate(m.lastErr, max(10, m.width/2)))
	case m.statusLine != "":
		right = m.statusStyle.Render(events.Truncate(m.statusLine, max(10, m.width/2)))
	case !m.lastSaved.IsZero():
		right = styles.Event.Render("saved " + m.lastSaved.Format("15:04:05"))
	}
	right += styles.Status.Render(" ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Drop the right side rather than wrap.
		return styles.Status.Width(m.width).MaxWidth(m.width).Render(left)
	}
	return left + styles.Status.Render(strings.Repeat(" ", gap)) + right
}

// renderFooter renders the text input while editing, otherwise key help.
func (m model) renderFooter() string {
	if m.editing {
		return styles.Input.Render(m.input.View())
	}
	return styles.Footer.Render(m.help.View(m.keys))
}

// canvasRows returns the number of terminal rows given to the canvas.
func (m model) canvasRows() int {
	return max(1, m.height-1-lipgloss.Height(m.renderFooter()))
}

// renderTooSmall renders a message when the terminal is too small.
func (m model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d)\nMinimum: %dx%d", m.width, m.height, minWidth, minHeight)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}
