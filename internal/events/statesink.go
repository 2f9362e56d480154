package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateBufferSize is the recommended buffer for a state sink subscription.
const StateBufferSize = 1000

// CurrentStateVersion is bumped on incompatible SessionState changes.
const CurrentStateVersion = 1

// DefaultMinSaveDelay is the minimum time between state file writes.
const DefaultMinSaveDelay = 2 * time.Second

// SessionState is the last known view of an editing session. It lets the
// next session reopen the document where the user left off.
type SessionState struct {
	Version   int       `json:"version"`
	Document  string    `json:"document"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Revision  uint64    `json:"revision"`
	Selected  string    `json:"selected,omitempty"`
	Zoom      float64   `json:"zoom"`
	PanX      float64   `json:"pan_x"`
	PanY      float64   `json:"pan_y"`
	LastSaved time.Time `json:"last_saved,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StateSink folds events into a SessionState and writes it to a JSON file,
// at most once per min delay and always on shutdown.
type StateSink struct {
	path     string
	mu       sync.Mutex
	state    SessionState
	dirty    bool
	lastSave time.Time
	minDelay time.Duration
	done     chan struct{}
}

// NewStateSink returns a sink writing to path.
func NewStateSink(path string) *StateSink {
	return &StateSink{
		path:     path,
		state:    SessionState{Version: CurrentStateVersion, Zoom: 1},
		minDelay: DefaultMinSaveDelay,
		done:     make(chan struct{}),
	}
}

// Start loads any existing state and consumes events until ctx is cancelled
// or the channel closes.
func (s *StateSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load state: %w", err)
	}

	go s.run(ctx, events)
	return nil
}

func (s *StateSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case event, ok := <-events:
			if !ok {
				s.flush()
				return
			}
			s.handle(event)
		}
	}
}

func (s *StateSink) handle(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *DocumentOpenedEvent:
		if e.Path != s.state.Document {
			s.state = SessionState{Version: CurrentStateVersion, Zoom: 1}
		}
		s.state.Document = e.Path
		s.state.Nodes = e.Nodes
	case *DocumentReloadedEvent:
		s.state.Nodes = e.Nodes
		s.state.Selected = ""
	case *DocumentSavedEvent:
		s.state.Nodes = e.Nodes
		s.state.Edges = e.Edges
		s.state.Revision = e.Revision
		s.state.LastSaved = e.Timestamp()
		s.state.LastError = ""
	case *NodeAddedEvent:
		s.state.Nodes++
	case *NodesDeletedEvent:
		s.state.Nodes -= len(e.NodeIDs)
	case *SelectionChangedEvent:
		s.state.Selected = e.NodeID
	case *ViewportChangedEvent:
		s.state.Zoom = e.Zoom
		s.state.PanX = e.PanX
		s.state.PanY = e.PanY
	case *ErrorEvent:
		s.state.LastError = e.Message
	default:
		return
	}
	s.dirty = true

	if time.Since(s.lastSave) >= s.minDelay {
		s.saveLocked()
	}
}

func (s *StateSink) saveLocked() {
	s.state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		slog.Error("marshal session state", "error", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		slog.Error("write session state", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("replace session state", "path", s.path, "error", err)
		return
	}

	s.dirty = false
	s.lastSave = time.Now()
}

func (s *StateSink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.saveLocked()
	}
}

// Stop waits for the consumer to exit. The final write happens there.
func (s *StateSink) Stop() error {
	<-s.done
	return nil
}

// Load reads the state file. A corrupt or incompatible file is moved to
// <path>.backup and the sink starts fresh.
func (s *StateSink) Load() error {
	state, err := ReadState(s.path)
	if err != nil && !os.IsNotExist(err) {
		if backupErr := os.Rename(s.path, s.path+".backup"); backupErr != nil {
			slog.Warn("session state unreadable, failed to back up",
				"path", s.path, "error", err, "backup_error", backupErr)
		} else {
			slog.Warn("session state unreadable, backed up and starting fresh",
				"path", s.path, "error", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// ReadState decodes a state file written by a StateSink.
func ReadState(path string) (SessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionState{}, err
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return SessionState{}, fmt.Errorf("decode session state: %w", err)
	}
	if state.Version != CurrentStateVersion {
		return SessionState{}, fmt.Errorf("session state version %d, want %d", state.Version, CurrentStateVersion)
	}
	return state, nil
}

// State returns a copy of the current state.
func (s *StateSink) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Path returns the state file path.
func (s *StateSink) Path() string {
	return s.path
}

// SetMinDelay overrides the write debounce.
func (s *StateSink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}
