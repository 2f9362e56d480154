package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

const sqliteDriverName = "sqlite"

// SQLiteStore keeps a document in a SQLite database. Each save replaces
// the whole document in one transaction.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// sqliteDSN builds a file: URI for path. The path is escaped so '?', '#'
// and '%' in a file name stay part of it.
func sqliteDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document path %q: %w", path, err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
	}
	return u.String(), nil
}

// OpenSQLite opens or creates the database at path and migrates its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return nil, fmt.Errorf("document path must not be empty")
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return nil, fmt.Errorf("document path %q is a directory", clean)
	}
	if dir := filepath.Dir(clean); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create document directory %q: %w", dir, err)
		}
	}

	dsn, err := sqliteDSN(clean)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", clean, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", clean, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{path: clean, db: db}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces the stored document with snap.
func (s *SQLiteStore) Save(ctx context.Context, snap mesh.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM edges`, `DELETE FROM nodes`, `DELETE FROM document`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear document: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document (id, root_id, updated_at) VALUES (1, ?, ?)`,
		snap.RootID.String(), time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, seq, x, y, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for i, n := range snap.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, n.ID.String(), i, n.Position.X, n.Position.Y, n.Text); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (id, seq, start_id, end_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for i, e := range snap.Edges {
		if _, err := edgeStmt.ExecContext(ctx, e.ID.String(), i, e.Start.String(), e.End.String()); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the stored document. A database without a document yields an
// error matching fs.ErrNotExist.
func (s *SQLiteStore) Load(ctx context.Context) (mesh.Snapshot, error) {
	var rootText string
	err := s.db.QueryRowContext(ctx, `SELECT root_id FROM document WHERE id = 1`).Scan(&rootText)
	if errors.Is(err, sql.ErrNoRows) {
		return mesh.Snapshot{}, fmt.Errorf("read document %s: %w", s.path, fs.ErrNotExist)
	}
	if err != nil {
		return mesh.Snapshot{}, fmt.Errorf("read document: %w", err)
	}

	var snap mesh.Snapshot
	if snap.RootID, err = mesh.ParseNodeID(rootText); err != nil {
		return mesh.Snapshot{}, fmt.Errorf("%w: root id: %v", ErrMalformed, err)
	}
	if snap.Nodes, err = s.loadNodes(ctx); err != nil {
		return mesh.Snapshot{}, err
	}
	if snap.Edges, err = s.loadEdges(ctx); err != nil {
		return mesh.Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context) ([]mesh.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, x, y, text FROM nodes ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []mesh.Node
	for rows.Next() {
		var (
			idText string
			x, y   float64
			text   string
		)
		if err := rows.Scan(&idText, &x, &y, &text); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		id, err := mesh.ParseNodeID(idText)
		if err != nil {
			return nil, fmt.Errorf("%w: node id %q: %v", ErrMalformed, idText, err)
		}
		out = append(out, mesh.Node{ID: id, Position: geometry.Pt(x, y), Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) loadEdges(ctx context.Context) ([]mesh.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, start_id, end_id FROM edges ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []mesh.Edge
	for rows.Next() {
		var idText, startText, endText string
		if err := rows.Scan(&idText, &startText, &endText); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		id, err := mesh.ParseEdgeID(idText)
		if err != nil {
			return nil, fmt.Errorf("%w: edge id %q: %v", ErrMalformed, idText, err)
		}
		start, err := mesh.ParseNodeID(startText)
		if err != nil {
			return nil, fmt.Errorf("%w: edge start %q: %v", ErrMalformed, startText, err)
		}
		end, err := mesh.ParseNodeID(endText)
		if err != nil {
			return nil, fmt.Errorf("%w: edge end %q: %v", ErrMalformed, endText, err)
		}
		out = append(out, mesh.Edge{ID: id, Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return out, nil
}

// Backup copies the database to <path>.backup.
func (s *SQLiteStore) Backup() error {
	dst := s.path + ".backup"
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old backup: %w", err)
	}
	if _, err := s.db.Exec(`VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
