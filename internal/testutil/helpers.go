package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/npratt/mindmesh/internal/events"
)

// TempDir creates a temporary directory and returns it along with a cleanup function.
// The cleanup function removes the directory and all its contents.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "mindmesh-test-*")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }
}

// WriteFile writes content to name under dir, creating parent directories,
// and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and fails the test if it cannot.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// FileExists reports whether path exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// SetupProjectDir creates a directory holding an empty .mindmesh folder.
func SetupProjectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".mindmesh"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

// SetupProjectDirWithConfig is SetupProjectDir plus a project config file.
func SetupProjectDirWithConfig(t *testing.T, configYAML string) string {
	t.Helper()
	dir := SetupProjectDir(t)
	WriteFile(t, dir, ".mindmesh/config.yaml", configYAML)
	return dir
}

// AssertEventTypes fails unless rec saw exactly the given event types in
// order.
func AssertEventTypes(t *testing.T, rec *Recorder, want ...events.EventType) {
	t.Helper()
	got := rec.Types()
	if !slices.Equal(got, want) {
		t.Errorf("event types = %v, want %v", got, want)
	}
}
