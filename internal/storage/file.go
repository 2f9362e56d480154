package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/npratt/mindmesh/internal/mesh"
)

// FileStore keeps a document in a single JSON, YAML or TOML file. Saves
// replace the file atomically.
type FileStore struct {
	path  string
	codec codec

	mu      sync.Mutex
	onWrite func(sum [sha256.Size]byte)
}

// NewFileStore returns a store for path, choosing the codec by extension.
func NewFileStore(path string) (*FileStore, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	return newFileStore(path, f)
}

func newFileStore(path string, f Format) (*FileStore, error) {
	c, err := codecFor(f)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: c}, nil
}

// Path returns the document path.
func (s *FileStore) Path() string {
	return s.path
}

// NotifyWrites registers fn to receive the checksum of every document this
// store writes, just before it becomes visible.
func (s *FileStore) NotifyWrites(fn func(sum [sha256.Size]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

// Save writes snap to a temp file beside the document and renames it into
// place.
func (s *FileStore) Save(ctx context.Context, snap mesh.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.encode(snap)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}

	s.mu.Lock()
	onWrite := s.onWrite
	s.mu.Unlock()
	if onWrite != nil {
		onWrite(Checksum(data))
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// Load reads and decodes the document. A missing file yields an error
// matching fs.ErrNotExist; one that fails to decode yields ErrMalformed.
// The file is left untouched either way.
func (s *FileStore) Load(ctx context.Context) (mesh.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return mesh.Snapshot{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return mesh.Snapshot{}, fmt.Errorf("read document: %w", err)
	}

	snap, err := s.codec.decode(data)
	if err != nil {
		return mesh.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snap, nil
}

// Backup moves the document to <path>.backup.
func (s *FileStore) Backup() error {
	return os.Rename(s.path, s.path+".backup")
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}
