package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/tidymark/internal/model"
)

const currentSchemaVersion = 1

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	notifier

	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at path.
// A fresh database is seeded with the two browser-style roots.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys and set pragmas for performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema and seeds the top-level roots.
func (s *SQLiteStore) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
		CREATE INDEX IF NOT EXISTS idx_nodes_url ON nodes(url);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339)
	for i, title := range []string{RootTitleBar, RootTitleOther} {
		_, err := s.db.Exec(
			"INSERT INTO nodes (id, parent_id, title, url, position, created_at) VALUES (?, '', ?, '', ?, ?)",
			model.GenerateUUID(), title, i, now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get returns the node with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, title, url, position, created_at
		FROM nodes WHERE id = ?
	`, id)
	return scanNode(row)
}

// GetChildren returns the direct children of a folder, ordered by position.
func (s *SQLiteStore) GetChildren(ctx context.Context, folderID string) ([]model.Node, error) {
	if folderID != "" {
		parent, err := s.Get(ctx, folderID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, ErrNotFolder
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, title, url, position, created_at
		FROM nodes WHERE parent_id = ?
		ORDER BY position
	`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetTree returns the full forest of top-level roots.
func (s *SQLiteStore) GetTree(ctx context.Context) ([]model.TreeNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, title, url, position, created_at
		FROM nodes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

// Create inserts a new node and notifies subscribers.
func (s *SQLiteStore) Create(ctx context.Context, params CreateParams) (model.Node, error) {
	if params.ParentID != "" {
		parent, err := s.Get(ctx, params.ParentID)
		if err != nil {
			return model.Node{}, err
		}
		if !parent.IsFolder() {
			return model.Node{}, ErrNotFolder
		}
	}

	node := model.NewNode(model.NewNodeParams{
		ParentID: params.ParentID,
		Title:    params.Title,
		URL:      params.URL,
	})

	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position)+1, 0) FROM nodes WHERE parent_id = ?",
		params.ParentID,
	).Scan(&node.Position)
	if err != nil {
		return model.Node{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, parent_id, title, url, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, node.ID, node.ParentID, node.Title, node.URL, node.Position,
		node.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return model.Node{}, err
	}

	s.emitCreated(node.ID, node)
	return node, nil
}

// Update edits a node's title and, for leaf bookmarks, its URL.
func (s *SQLiteStore) Update(ctx context.Context, id string, info model.ChangeInfo) error {
	node, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	node.Title = info.Title
	if !node.IsFolder() && info.URL != "" {
		node.URL = info.URL
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE nodes SET title = ?, url = ? WHERE id = ?",
		node.Title, node.URL, id,
	)
	if err != nil {
		return err
	}

	s.emitChanged(id, model.ChangeInfo{Title: node.Title, URL: node.URL})
	return nil
}

// Move re-parents a node and notifies subscribers.
func (s *SQLiteStore) Move(ctx context.Context, id, parentID string) error {
	node, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if parentID != "" {
		parent, err := s.Get(ctx, parentID)
		if err != nil {
			return err
		}
		if !parent.IsFolder() {
			return ErrNotFolder
		}
	}

	var position int
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position)+1, 0) FROM nodes WHERE parent_id = ?",
		parentID,
	).Scan(&position)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE nodes SET parent_id = ?, position = ? WHERE id = ?",
		parentID, position, id,
	)
	if err != nil {
		return err
	}

	s.emitMoved(id, model.MoveInfo{ParentID: parentID, OldParentID: node.ParentID})
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (model.Node, error) {
	var n model.Node
	var createdAt string
	err := row.Scan(&n.ID, &n.ParentID, &n.Title, &n.URL, &n.Position, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Node{}, ErrNotFound
		}
		return model.Node{}, err
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return n, nil
}
