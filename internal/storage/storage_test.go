package storage

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/testutil"
)

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func assertSnapshotEqual(t *testing.T, got, want mesh.Snapshot) {
	t.Helper()
	if got.RootID != want.RootID {
		t.Errorf("RootID = %s, want %s", got.RootID, want.RootID)
	}
	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("len(Nodes) = %d, want %d", len(got.Nodes), len(want.Nodes))
	}
	for i := range want.Nodes {
		if got.Nodes[i] != want.Nodes[i] {
			t.Errorf("node %d = %+v, want %+v", i, got.Nodes[i], want.Nodes[i])
		}
	}
	if len(got.Edges) != len(want.Edges) {
		t.Fatalf("len(Edges) = %d, want %d", len(got.Edges), len(want.Edges))
	}
	for i := range want.Edges {
		if got.Edges[i] != want.Edges[i] {
			t.Errorf("edge %d = %+v, want %+v", i, got.Edges[i], want.Edges[i])
		}
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"map.json", FormatJSON, false},
		{"map.mesh", FormatJSON, false},
		{"MAP.YAML", FormatYAML, false},
		{"a/b.yml", FormatYAML, false},
		{"map.toml", FormatTOML, false},
		{"map.db", FormatSQLite, false},
		{"map.sqlite", FormatSQLite, false},
		{"map.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("FormatFor(%q) error = %v, want ErrUnsupportedFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatFor(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".mesh", ".yaml", ".yml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "docs", "map"+ext)
			store, err := NewFileStore(path)
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}

			want := mesh.Sample().Snapshot()
			if err := store.Save(context.Background(), want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			assertSnapshotEqual(t, got, want)

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("directory holds %d entries, want only the document", len(entries))
			}
		})
	}
}

func TestFileStore_DecodesFixtures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"map.json", testutil.ThreeNodeJSON},
		{"map.yaml", testutil.ThreeNodeYAML},
		{"map.toml", testutil.ThreeNodeTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), tt.name, tt.content)
			store, err := NewFileStore(path)
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			got, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			assertSnapshotEqual(t, got, testutil.ThreeNodeSnapshot())
		})
	}
}

func TestFileStore_JSONLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	store, _ := NewFileStore(path)
	if err := store.Save(context.Background(), testutil.ThreeNodeSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	content := testutil.ReadFile(t, path)
	for _, want := range []string{`"root_id": "` + testutil.RootIDText + `"`, `"nodes": [`, `"edges": [`, `"text": "grandchild"`} {
		if !strings.Contains(content, want) {
			t.Errorf("document missing %s:\n%s", want, content)
		}
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "none.json"))

	_, err := store.Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load error = %v, want fs.ErrNotExist", err)
	}
}

func TestFileStore_MalformedLoadLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "map.json", "{ not json")
	store, _ := NewFileStore(path)

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Load error = %v, want ErrMalformed", err)
	}
	if got := testutil.ReadFile(t, path); got != "{ not json" {
		t.Errorf("document content = %q, want it untouched", got)
	}
	if testutil.FileExists(t, path+".backup") {
		t.Error("Load should not create a backup")
	}
}

func TestConvert_MalformedSourceLeftInPlace(t *testing.T) {
	dir := t.TempDir()
	srcPath := testutil.WriteFile(t, dir, "map.json", "{ not json")
	src, _ := NewFileStore(srcPath)
	dst, _ := NewFileStore(filepath.Join(dir, "map.yaml"))

	if err := Convert(context.Background(), src, dst); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Convert error = %v, want ErrMalformed", err)
	}
	if !testutil.FileExists(t, srcPath) {
		t.Error("source document moved by a failed convert")
	}
}

func TestFileStore_UnknownFieldsRejected(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "map.yaml", "root_id: x\nextra: 1\n")
	store, _ := NewFileStore(path)

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrMalformed) {
		t.Errorf("Load error = %v, want ErrMalformed", err)
	}
}

func TestFileStore_NotifyWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.toml")
	store, _ := NewFileStore(path)

	var got [32]byte
	store.NotifyWrites(func(sum [32]byte) { got = sum })
	if err := store.Save(context.Background(), testutil.ThreeNodeSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(path)
	if got != Checksum(data) {
		t.Error("notified checksum does not match written content")
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "map.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Save(ctx, mesh.New().Snapshot()); !errors.Is(err, context.Canceled) {
		t.Errorf("Save error = %v, want context.Canceled", err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load on empty database error = %v, want fs.ErrNotExist", err)
	}

	first := mesh.Sample().Snapshot()
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m, _ := mesh.Load(first)
	m.DeleteNodes(first.Nodes[1].ID)
	_, _ = m.AddChildAt(m.RootID(), geometry.Pt(-5.5, 7.25))
	second := m.Snapshot()
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, got, second)
}

func TestSQLiteStore_PathWithURIDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plans?v=2#draft 100%.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	snap := mesh.Sample().Snapshot()
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !testutil.FileExists(t, path) {
		t.Fatalf("database not created at %q", path)
	}
	if testutil.FileExists(t, filepath.Join(dir, "plans")) {
		t.Error("database created at a truncated path")
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, got, snap)
}

func TestSQLiteDSN_EscapesPath(t *testing.T) {
	dsn, err := sqliteDSN("/data/a?b#c%d.db")
	if err != nil {
		t.Fatalf("sqliteDSN: %v", err)
	}
	want := "file:///data/a%3Fb%23c%25d.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if dsn != want {
		t.Errorf("dsn = %q, want %q", dsn, want)
	}
}

func TestSQLiteStore_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.sqlite")
	for i := 0; i < 2; i++ {
		store, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		v, err := schemaVersion(store.db)
		if err != nil {
			t.Fatalf("schemaVersion: %v", err)
		}
		if v != len(migrations) {
			t.Errorf("schema version = %d, want %d", v, len(migrations))
		}
		_ = store.Close()
	}
}

func TestSQLiteStore_Backup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	_ = store.Save(context.Background(), testutil.ThreeNodeSnapshot())

	if err := store.Backup(); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	backup, err := OpenSQLite(path + ".backup")
	if err == nil {
		defer backup.Close()
	}
	if !testutil.FileExists(t, path+".backup") {
		t.Fatal("backup file missing")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(filepath.Join(dir, "a.yaml"))
	if err != nil {
		t.Fatalf("Open yaml: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(yaml) = %T, want *FileStore", s)
	}

	s, err = Open(filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(db) = %T, want *SQLiteStore", s)
	}
	_ = s.Close()

	if _, err := Open(filepath.Join(dir, "a.csv")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open(csv) error = %v", err)
	}
}

func TestOpenAs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.map")

	s, err := OpenAs(path, FormatYAML)
	if err != nil {
		t.Fatalf("OpenAs: %v", err)
	}
	if err := s.Save(context.Background(), testutil.ThreeNodeSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data := testutil.ReadFile(t, path)
	if !strings.Contains(data, "root_id:") {
		t.Errorf("document is not YAML:\n%s", data)
	}

	if _, err := OpenAs(path, Format("csv")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("OpenAs(csv fallback) error = %v", err)
	}
	// A known extension wins over the fallback.
	s, err = OpenAs(filepath.Join(dir, "a.toml"), FormatJSON)
	if err != nil {
		t.Fatalf("OpenAs toml: %v", err)
	}
	if file, ok := s.(*FileStore); !ok || file.codec != (tomlCodec{}) {
		t.Errorf("OpenAs(toml) = %#v, want toml FileStore", s)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"sqlite", FormatSQLite, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src, _ := NewFileStore(testutil.WriteFile(t, dir, "in.yaml", testutil.ThreeNodeYAML))
	dst, err := OpenSQLite(filepath.Join(dir, "out.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer dst.Close()

	if err := Convert(context.Background(), src, dst); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	got, err := dst.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, got, testutil.ThreeNodeSnapshot())
}

func TestConvert_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	src, _ := NewFileStore(testutil.WriteFile(t, dir, "in.json", testutil.CyclicJSON))
	dst, _ := NewFileStore(filepath.Join(dir, "out.json"))

	if err := Convert(context.Background(), src, dst); !errors.Is(err, mesh.ErrInvalidSnapshot) {
		t.Errorf("Convert error = %v, want ErrInvalidSnapshot", err)
	}
	if testutil.FileExists(t, dst.Path()) {
		t.Error("invalid document was written")
	}
}

func TestRestore(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "map.json", testutil.ThreeNodeJSON)
		store, _ := NewFileStore(path)

		m, ok := Restore(context.Background(), store, nil)
		if !ok {
			t.Fatal("Restore reported failure")
		}
		if m.NodeCount() != 3 || m.Root().Text != "root" {
			t.Errorf("restored mesh = %d nodes", m.NodeCount())
		}
	})

	t.Run("missing document", func(t *testing.T) {
		var buf bytes.Buffer
		store, _ := NewFileStore(filepath.Join(t.TempDir(), "new.json"))

		m, ok := Restore(context.Background(), store, quietLogger(&buf))
		if ok {
			t.Error("Restore reported success")
		}
		if m.NodeCount() != 1 || m.Root().Text != mesh.RootText {
			t.Error("fallback is not a fresh mesh")
		}
		if !strings.Contains(buf.String(), "document not found") {
			t.Errorf("log = %s", buf.String())
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		var buf bytes.Buffer
		path := testutil.WriteFile(t, t.TempDir(), "map.toml", "= broken")
		store, _ := NewFileStore(path)

		m, ok := Restore(context.Background(), store, quietLogger(&buf))
		if ok || m.NodeCount() != 1 {
			t.Error("malformed document restored")
		}
		if got := testutil.ReadFile(t, path+".backup"); got != "= broken" {
			t.Errorf("backup content = %q", got)
		}
		if !strings.Contains(buf.String(), "load document failed") {
			t.Errorf("log = %s", buf.String())
		}
	})

	t.Run("invariant violation is backed up", func(t *testing.T) {
		var buf bytes.Buffer
		path := testutil.WriteFile(t, t.TempDir(), "map.json", testutil.CyclicJSON)
		store, _ := NewFileStore(path)

		m, ok := Restore(context.Background(), store, quietLogger(&buf))
		if ok || m.NodeCount() != 1 {
			t.Error("cyclic document restored")
		}
		if !testutil.FileExists(t, path+".backup") {
			t.Error("cyclic document not backed up")
		}
		if !strings.Contains(buf.String(), "document invalid") {
			t.Errorf("log = %s", buf.String())
		}
	})
}

func TestWatcher_ReportsExternalChange(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "map.json", testutil.ThreeNodeJSON)

	w := NewWatcher(path, nil)
	w.SetDebounce(20 * time.Millisecond)

	var calls atomic.Int32
	changed := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, "map.json", testutil.CyclicJSON)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("external change not reported")
	}

	// Unrelated files are ignored.
	testutil.WriteFile(t, dir, "other.json", "{}")
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("onChange called %d times, want 1", calls.Load())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestWatcher_IgnoresOwnSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	store, _ := NewFileStore(path)

	w := NewWatcher(path, nil)
	w.SetDebounce(20 * time.Millisecond)
	store.NotifyWrites(w.Remember)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, func() { calls.Add(1) }) }()
	time.Sleep(100 * time.Millisecond)

	if err := store.Save(context.Background(), testutil.ThreeNodeSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("own save reported %d times", calls.Load())
	}
}
