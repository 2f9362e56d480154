package events

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxTextLength     = 40
	shortIDLength     = 8
	truncateIndicator = "..."
)

// Format renders an event as one line for the status bar and the log
// command. Unknown and nil events render as "".
func Format(event Event) string {
	switch e := event.(type) {
	case *DocumentOpenedEvent:
		if !e.Restored {
			return fmt.Sprintf("opened %s (new document)", filepath.Base(e.Path))
		}
		return fmt.Sprintf("opened %s (%d nodes)", filepath.Base(e.Path), e.Nodes)
	case *DocumentSavedEvent:
		return fmt.Sprintf("saved %s (%d nodes, %dms)", filepath.Base(e.Path), e.Nodes, e.DurationMs)
	case *DocumentReloadedEvent:
		return fmt.Sprintf("reloaded %s after external change", filepath.Base(e.Path))
	case *NodeAddedEvent:
		kind := "child"
		if e.Sibling {
			kind = "sibling"
		}
		return fmt.Sprintf("added %s %s at (%.0f, %.0f)", kind, ShortID(e.NodeID), e.X, e.Y)
	case *NodeMovedEvent:
		return fmt.Sprintf("moved %s to (%.0f, %.0f)", ShortID(e.NodeID), e.X, e.Y)
	case *NodeTextEvent:
		return fmt.Sprintf("renamed %s to %q", ShortID(e.NodeID), Truncate(e.Text, maxTextLength))
	case *NodesDeletedEvent:
		msg := fmt.Sprintf("deleted %d node(s)", len(e.NodeIDs))
		if e.Orphans > 0 {
			msg += fmt.Sprintf(", %d orphaned", e.Orphans)
		}
		return msg
	case *SelectionChangedEvent:
		if e.NodeID == "" {
			return "selection cleared"
		}
		return "selected " + ShortID(e.NodeID)
	case *ViewportChangedEvent:
		return fmt.Sprintf("zoom %.0f%%", e.Zoom*100)
	case *ErrorEvent:
		return fmt.Sprintf("%s: %s", e.Severity, SafeString(e.Message))
	default:
		return ""
	}
}

// FormatWithTimestamp prefixes Format with the event's wall clock time.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05")
	if detail := Format(event); detail != "" {
		return fmt.Sprintf("[%s] %s", ts, detail)
	}
	return fmt.Sprintf("[%s] %s", ts, event.Type())
}

// ShortID returns the leading characters of an id string.
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// Truncate shortens s to at most maxLen runes, ending with an indicator
// when cut.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return string(runes[:maxLen-len(truncateIndicator)]) + truncateIndicator
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// SafeString strips ANSI sequences and control characters and collapses
// whitespace so user text cannot break a terminal line.
func SafeString(s string) string {
	s = ansiRegex.ReplaceAllString(s, "")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			sb.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
