package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// Sink consumes events from a router subscription.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// backupTimeFormat is the suffix format of rotated activity logs.
const backupTimeFormat = "2006-01-02T15-04-05"

// LogSink appends every event as one JSON line to the activity log. A
// non-empty log from an earlier session is rotated aside on Start, keeping
// at most MaxBackups old files.
type LogSink struct {
	path       string
	maxBackups int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	done    chan struct{}
}

// NewLogSink returns a sink writing to path. maxBackups <= 0 keeps every
// rotated log.
func NewLogSink(path string, maxBackups int) *LogSink {
	return &LogSink{
		path:       path,
		maxBackups: maxBackups,
		done:       make(chan struct{}),
	}
}

// Start opens the log and consumes events until ctx is cancelled or the
// channel closes.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := s.rotate(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.mu.Unlock()

	go s.run(ctx, events)
	return nil
}

func (s *LogSink) rotate() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat activity log: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	bak := fmt.Sprintf("%s.%s.bak", s.path, time.Now().Format(backupTimeFormat))
	if err := os.Rename(s.path, bak); err != nil {
		return fmt.Errorf("rotate activity log: %w", err)
	}
	s.pruneBackups()
	return nil
}

// pruneBackups removes the oldest rotated logs beyond maxBackups. The
// timestamp suffix sorts chronologically.
func (s *LogSink) pruneBackups() {
	if s.maxBackups <= 0 {
		return
	}
	matches, err := filepath.Glob(s.path + ".*.bak")
	if err != nil || len(matches) <= s.maxBackups {
		return
	}
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-s.maxBackups] {
		if err := os.Remove(old); err != nil {
			slog.Warn("remove old activity log", "path", old, "error", err)
		}
	}
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		}
	}
}

func (s *LogSink) write(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return
	}
	if err := s.encoder.Encode(event); err != nil {
		slog.Error("write activity log", "event_type", event.Type(), "error", err)
	}
}

// Stop waits for the consumer to exit and closes the file.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.encoder = nil
	return err
}

// Path returns the log file path.
func (s *LogSink) Path() string {
	return s.path
}
