// Package storage saves and loads mind map documents. A document is a
// mesh.Snapshot; the file extension picks the encoding.
package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/npratt/mindmesh/internal/mesh"
)

// ErrUnsupportedFormat is returned for a path whose extension maps to no
// known document format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrMalformed is returned when a document cannot be decoded.
var ErrMalformed = errors.New("malformed document")

// Store persists one document.
type Store interface {
	Save(ctx context.Context, snap mesh.Snapshot) error
	Load(ctx context.Context) (mesh.Snapshot, error)
	Path() string
	Close() error
}

// backupper is implemented by stores that can set a bad document aside
// before it gets overwritten.
type backupper interface {
	Backup() error
}

// Format names a document encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML, FormatSQLite}

var extFormats = map[string]Format{
	".json":   FormatJSON,
	".mesh":   FormatJSON,
	".yaml":   FormatYAML,
	".yml":    FormatYAML,
	".toml":   FormatTOML,
	".db":     FormatSQLite,
	".sqlite": FormatSQLite,
}

// FormatFor returns the format implied by path's extension.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extFormats[ext]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	return f, nil
}

// Extension returns the canonical file extension of f.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatTOML:
		return ".toml"
	case FormatSQLite:
		return ".db"
	default:
		return ""
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsupportedFormat)
	}
	return f, nil
}

// Open returns the store for path.
func Open(path string) (Store, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	return openFormat(path, f)
}

// OpenAs is Open, but uses fallback when path has no known extension.
func OpenAs(path string, fallback Format) (Store, error) {
	f, err := FormatFor(path)
	if err != nil {
		if !slices.Contains(Formats, fallback) {
			return nil, err
		}
		f = fallback
	}
	return openFormat(path, f)
}

func openFormat(path string, f Format) (Store, error) {
	if f == FormatSQLite {
		return OpenSQLite(path)
	}
	return newFileStore(path, f)
}

// Convert copies the document in src into dst.
func Convert(ctx context.Context, src, dst Store) error {
	snap, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Path(), err)
	}
	if err := mesh.Validate(snap); err != nil {
		return fmt.Errorf("load %s: %w", src.Path(), err)
	}
	if err := dst.Save(ctx, snap); err != nil {
		return fmt.Errorf("save %s: %w", dst.Path(), err)
	}
	return nil
}

// Checksum fingerprints document bytes.
func Checksum(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}
