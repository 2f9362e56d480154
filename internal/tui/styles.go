package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/mindmesh/internal/events"
)

// styles contains the lipgloss styles used outside the canvas.
var styles = struct {
	// Status line
	Status   lipgloss.Style
	Document lipgloss.Style
	Dirty    lipgloss.Style
	Zoom     lipgloss.Style
	Selected lipgloss.Style
	Saving   lipgloss.Style

	// Event styles
	Event   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Footer style
	Footer lipgloss.Style
	Input  lipgloss.Style
}{
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("236")),

	Document: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Background(lipgloss.Color("236")),

	Dirty: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Background(lipgloss.Color("236")),

	Zoom: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")).
		Background(lipgloss.Color("236")),

	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Background(lipgloss.Color("236")),

	Saving: lipgloss.NewStyle().
		Foreground(lipgloss.Color("82")),

	Event: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Background(lipgloss.Color("236")),

	Warning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Background(lipgloss.Color("236")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Background(lipgloss.Color("236")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Input: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),
}

// canvasStyles contains styles specific to canvas rendering.
var canvasStyles = struct {
	Blank    lipgloss.Style
	Link     lipgloss.Style
	Node     lipgloss.Style
	Root     lipgloss.Style
	Selected lipgloss.Style
}{
	Blank: lipgloss.NewStyle(),

	Link: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Node: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Root: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Selected: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).  // Bright cyan for selection
		Background(lipgloss.Color("236")), // Subtle background
}

// StyleForEvent returns the status line style for an event.
func StyleForEvent(event events.Event) lipgloss.Style {
	e, ok := event.(*events.ErrorEvent)
	if !ok {
		return styles.Event
	}
	if e.Severity == events.SeverityWarning {
		return styles.Warning
	}
	return styles.Error
}
