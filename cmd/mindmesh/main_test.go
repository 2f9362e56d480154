package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/storage"
	"github.com/npratt/mindmesh/internal/testutil"
)

// isolate runs the test in an empty project directory with no global
// config.
func isolate(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := testutil.SetupProjectDir(t)
	t.Chdir(dir)
	return dir
}

// runCmd executes the root command with args and returns its output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.logger = newLogger(io.Discard, a.logLevel)

	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func loadDocument(t *testing.T, path string) *mesh.Mesh {
	t.Helper()
	store, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", path, err)
	}
	m, err := mesh.Load(snap)
	if err != nil {
		t.Fatalf("mesh.Load(%s) failed: %v", path, err)
	}
	return m
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "mindmesh dev\n" {
		t.Errorf("output = %q, want %q", out, "mindmesh dev\n")
	}
}

func TestConfigCommand(t *testing.T) {
	color.NoColor = true
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(testutil.SetupProjectDirWithConfig(t, "editor:\n  child_distance: 120\n"))

	out, err := runCmd(t, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "child_distance: 120") {
		t.Errorf("output should show the project override, got:\n%s", out)
	}
	if !strings.Contains(out, "format: json") {
		t.Errorf("output should show defaults, got:\n%s", out)
	}
}

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		file      string
		wantNodes int
	}{
		{"default document", []string{"new", "map.json"}, "map.json", 1},
		{"static sample", []string{"new", "map.yaml", "--sample", "static"}, "map.yaml", 4},
		{"sqlite", []string{"new", "map.db"}, "map.db", 1},
		{"format fallback", []string{"new", "notes.map", "--format", "toml"}, "notes.map", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)

			out, err := runCmd(t, tt.args...)
			if err != nil {
				t.Fatalf("new failed: %v\n%s", err, out)
			}
			if !strings.Contains(out, "created") {
				t.Errorf("output = %q, want created message", out)
			}

			path := filepath.Join(dir, tt.file)
			if tt.file == "notes.map" {
				if !strings.Contains(testutil.ReadFile(t, path), "root_id = ") {
					t.Error("expected a TOML document")
				}
				return
			}
			if got := loadDocument(t, path).NodeCount(); got != tt.wantNodes {
				t.Errorf("NodeCount() = %d, want %d", got, tt.wantNodes)
			}
		})
	}
}

func TestNewCommand_RefusesOverwrite(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	if _, err := runCmd(t, "new", "map.json"); err == nil {
		t.Fatal("expected error for existing document")
	}
	if got := loadDocument(t, path).NodeCount(); got != 3 {
		t.Errorf("existing document changed: %d nodes", got)
	}

	if _, err := runCmd(t, "new", "map.json", "--force"); err != nil {
		t.Fatalf("new --force failed: %v", err)
	}
	if got := loadDocument(t, path).NodeCount(); got != 2 {
		t.Errorf("NodeCount() after --force = %d, want 2", got)
	}
}

func TestNewCommand_ProceduralSampleIsSeeded(t *testing.T) {
	dir := isolate(t)

	for _, name := range []string{"a.json", "b.json"} {
		if _, err := runCmd(t, "new", name, "--sample", "procedural", "--seed", "7"); err != nil {
			t.Fatalf("new %s failed: %v", name, err)
		}
	}

	a := loadDocument(t, filepath.Join(dir, "a.json"))
	b := loadDocument(t, filepath.Join(dir, "b.json"))
	if a.NodeCount() < 25 {
		t.Errorf("NodeCount() = %d, want at least 25", a.NodeCount())
	}
	if a.NodeCount() != b.NodeCount() {
		t.Errorf("same seed gave %d and %d nodes", a.NodeCount(), b.NodeCount())
	}
}

func TestNewCommand_UnknownSample(t *testing.T) {
	isolate(t)

	if _, err := runCmd(t, "new", "map.json", "--sample", "huge"); err == nil {
		t.Error("expected error for unknown sample")
	}
}

func TestTreeCommand(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	out, err := runCmd(t, "tree", "map.json")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	want := "root\n└── child\n    └── grandchild\n"
	if out != want {
		t.Errorf("output =\n%s\nwant\n%s", out, want)
	}
}

func TestTreeCommand_Positions(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	out, err := runCmd(t, "tree", "map.json", "--positions")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if !strings.Contains(out, "grandchild (400, 300)") {
		t.Errorf("output should include positions, got:\n%s", out)
	}
}

func TestTreeCommand_ConfiguredDocument(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "mindmap.json", testutil.ThreeNodeJSON)

	out, err := runCmd(t, "tree")
	if err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if !strings.HasPrefix(out, "root\n") {
		t.Errorf("output = %q, want the default document", out)
	}
}

func TestPrintTree_Orphans(t *testing.T) {
	color.NoColor = true
	m, ids := testutil.Chain(3)
	m.DeleteNodes(ids[1])
	_ = m.UpdateText(ids[2], "stray")

	var buf bytes.Buffer
	printTree(&buf, m, false)

	out := buf.String()
	if !strings.Contains(out, "orphans (1)\nstray\n└── child\n") {
		t.Errorf("output should list the orphaned subtree, got:\n%s", out)
	}
}

func TestPrintTree_SiblingBranches(t *testing.T) {
	color.NoColor = true
	m, _ := testutil.Fan(2, 100)

	var buf bytes.Buffer
	printTree(&buf, m, false)

	want := "root\n├── child\n└── child\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "good.json", testutil.ThreeNodeJSON)
	testutil.WriteFile(t, dir, "bad.json", testutil.CyclicJSON)

	out, err := runCmd(t, "validate", "good.json")
	if err != nil {
		t.Fatalf("validate good.json failed: %v", err)
	}
	for _, want := range []string{"ok: good.json", "nodes:   3", "edges:   2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}

	out, err = runCmd(t, "validate", "bad.json")
	if !errors.Is(err, mesh.ErrInvalidSnapshot) {
		t.Errorf("error = %v, want ErrInvalidSnapshot", err)
	}
	if !strings.Contains(out, "invalid:") {
		t.Errorf("output should report the failure, got:\n%s", out)
	}
}

func TestReadOnlyCommands_LeaveMalformedDocument(t *testing.T) {
	for _, args := range [][]string{
		{"validate", "broken.json"},
		{"tree", "broken.json"},
		{"convert", "broken.json", "broken.yaml"},
	} {
		t.Run(args[0], func(t *testing.T) {
			dir := isolate(t)
			path := testutil.WriteFile(t, dir, "broken.json", "{not json")

			_, err := runCmd(t, args...)
			if !errors.Is(err, storage.ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
			if got := testutil.ReadFile(t, path); got != "{not json" {
				t.Errorf("document content = %q, want it untouched", got)
			}
			if testutil.FileExists(t, path+".backup") {
				t.Error("read-only command created a backup")
			}
		})
	}
}

func TestValidateCommand_Missing(t *testing.T) {
	isolate(t)

	if _, err := runCmd(t, "validate", "nope.json"); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestConvertCommand(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	for _, dst := range []string{"map.yaml", "map.toml", "map.db"} {
		t.Run(dst, func(t *testing.T) {
			out, err := runCmd(t, "convert", "map.json", dst)
			if err != nil {
				t.Fatalf("convert failed: %v", err)
			}
			if !strings.Contains(out, "converted map.json to "+dst) {
				t.Errorf("output = %q", out)
			}
			m := loadDocument(t, filepath.Join(dir, dst))
			if m.NodeCount() != 3 || m.EdgeCount() != 2 {
				t.Errorf("converted document has %d nodes, %d edges", m.NodeCount(), m.EdgeCount())
			}
		})
	}
}

func TestConvertCommand_InvalidSource(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "bad.json", testutil.CyclicJSON)

	if _, err := runCmd(t, "convert", "bad.json", "out.yaml"); !errors.Is(err, mesh.ErrInvalidSnapshot) {
		t.Errorf("error = %v, want ErrInvalidSnapshot", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.yaml")); err == nil {
		t.Error("destination written for invalid source")
	}
}

func TestConvertCommand_UnsupportedDestination(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	if _, err := runCmd(t, "convert", "map.json", "map.csv", "--format", "csv"); !errors.Is(err, storage.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func writeActivity(t *testing.T, path string, evs ...events.Event) {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	testutil.WriteFile(t, filepath.Dir(path), filepath.Base(path), buf.String())
}

func addedEvent(id string) *events.NodeAddedEvent {
	return &events.NodeAddedEvent{
		BaseEvent: events.NewEditorEvent(events.EventNodeAdded),
		NodeID:    id,
		X:         10,
		Y:         20,
	}
}

func TestLogCommand(t *testing.T) {
	dir := isolate(t)
	writeActivity(t, filepath.Join(dir, ".mindmesh", "activity.jsonl"),
		addedEvent("aaaaaaaa-1"),
		addedEvent("bbbbbbbb-2"),
		addedEvent("cccccccc-3"),
	)

	out, err := runCmd(t, "log", "--count", "2")
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if strings.Contains(out, "aaaaaaaa") {
		t.Errorf("output should only show the last 2 events, got:\n%s", out)
	}
	for _, want := range []string{"added child bbbbbbbb at (10, 20)", "added child cccccccc"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestLogCommand_ActivityFileFlag(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "elsewhere.jsonl")
	writeActivity(t, path, addedEvent("dddddddd-4"))

	out, err := runCmd(t, "log", "--activity-file", path)
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(out, "dddddddd") {
		t.Errorf("output = %q", out)
	}
}

func TestLogCommand_NoActivity(t *testing.T) {
	isolate(t)

	out, err := runCmd(t, "log")
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(out, "No activity yet") {
		t.Errorf("output = %q", out)
	}
}

func TestEditCommand_RequiresTerminal(t *testing.T) {
	isolate(t)
	if isTerminal() {
		t.Skip("stdout is a terminal")
	}

	_, err := runCmd(t, "edit", "map.json")
	if err == nil || !strings.Contains(err.Error(), "needs a terminal") {
		t.Errorf("error = %v, want terminal error", err)
	}
}

func TestNewCommand_RefusesLockedDocument(t *testing.T) {
	dir := isolate(t)
	lock := storage.NewLock(filepath.Join(dir, "map.json"))
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer func() { _ = lock.Release() }()

	if _, err := runCmd(t, "new", filepath.Join(dir, "map.json"), "--force"); !errors.Is(err, storage.ErrLocked) {
		t.Errorf("error = %v, want ErrLocked", err)
	}
}

func TestLogCommand_ResolvesAgainstProjectRoot(t *testing.T) {
	dir := isolate(t)
	writeActivity(t, filepath.Join(dir, ".mindmesh", "activity.jsonl"), addedEvent("99999999-9"))

	sub := filepath.Join(dir, "notes", "deep")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	t.Chdir(sub)

	out, err := runCmd(t, "log")
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(out, "99999999") {
		t.Errorf("log from a subdirectory should find the project activity log, got %q", out)
	}
}
