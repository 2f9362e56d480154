package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/npratt/mindmesh/internal/mesh"
)

// Restore loads the document in store. Any failure is logged and a fresh
// mesh returned with false; the caller always gets a usable document. A
// document that fails to decode or breaks the tree invariants is moved to
// <path>.backup first so a later save does not destroy it.
func Restore(ctx context.Context, store Store, logger *slog.Logger) (*mesh.Mesh, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("document not found, starting new", "path", store.Path())
		return mesh.New(), false
	case errors.Is(err, ErrMalformed):
		logger.Warn("load document failed, starting new", backupAttrs(store, err)...)
		return mesh.New(), false
	case err != nil:
		logger.Warn("load document failed, starting new",
			"path", store.Path(),
			"error", err)
		return mesh.New(), false
	}

	m, err := mesh.Load(snap)
	if err != nil {
		logger.Warn("document invalid, starting new", backupAttrs(store, err)...)
		return mesh.New(), false
	}

	logger.Debug("document restored",
		"path", store.Path(),
		"nodes", m.NodeCount(),
		"edges", m.EdgeCount())
	return m, true
}

// backupAttrs sets the document aside when the store supports it and
// returns the log attributes describing the outcome.
func backupAttrs(store Store, err error) []any {
	attrs := []any{"path", store.Path(), "error", err}
	b, ok := store.(backupper)
	if !ok {
		return attrs
	}
	if backupErr := b.Backup(); backupErr != nil {
		return append(attrs, "backup_error", backupErr)
	}
	return append(attrs, "backup", store.Path()+".backup")
}
