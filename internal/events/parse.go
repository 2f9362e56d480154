package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

type envelope struct {
	Type EventType `json:"type"`
}

// ParseEvent decodes one activity log line. Unknown event types yield a
// nil event and no error so older binaries can read newer logs.
func ParseEvent(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}

	var ev Event
	switch env.Type {
	case EventDocumentOpened:
		ev = &DocumentOpenedEvent{}
	case EventDocumentSaved:
		ev = &DocumentSavedEvent{}
	case EventDocumentReloaded:
		ev = &DocumentReloadedEvent{}
	case EventNodeAdded:
		ev = &NodeAddedEvent{}
	case EventNodeMoved:
		ev = &NodeMovedEvent{}
	case EventNodeText:
		ev = &NodeTextEvent{}
	case EventNodesDeleted:
		ev = &NodesDeletedEvent{}
	case EventSelectionChanged:
		ev = &SelectionChangedEvent{}
	case EventViewportChanged:
		ev = &ViewportChangedEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadLog decodes an activity log. Malformed lines are skipped with a
// warning; unknown event types are skipped silently.
func ReadLog(r io.Reader) ([]Event, error) {
	var out []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			slog.Warn("skip malformed activity log line", "line", lineNo, "error", err)
			continue
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read activity log: %w", err)
	}
	return out, nil
}
