// Package sqlite keeps mindmap snapshots in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS mindmaps (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	node_count INTEGER NOT NULL,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

const upsertMindmap = `
INSERT INTO mindmaps (id, title, node_count, document, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title      = excluded.title,
	node_count = excluded.node_count,
	document   = excluded.document,
	updated_at = excluded.updated_at
WHERE excluded.updated_at >= mindmaps.updated_at`

// MindmapArchive stores one row per mindmap holding its JSON document
type MindmapArchive struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.MindmapArchive = (*MindmapArchive)(nil)

// NewMindmapArchive opens (creating if needed) the database at path
func NewMindmapArchive(path string, logger *zap.Logger) (*MindmapArchive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite archive opened", zap.String("path", path))
	return &MindmapArchive{db: db, logger: logger}, nil
}

// Load returns the archived mindmap or ports.ErrArchiveMiss
func (a *MindmapArchive) Load(ctx context.Context, id string) (*entities.Mindmap, error) {
	var document string
	err := a.db.QueryRowContext(ctx, `SELECT document FROM mindmaps WHERE id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrArchiveMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mindmap %s: %w", id, err)
	}

	var m entities.Mindmap
	if err := json.Unmarshal([]byte(document), &m); err != nil {
		return nil, fmt.Errorf("failed to decode mindmap %s: %w", id, err)
	}
	return &m, nil
}

// Store upserts the mindmap document. A row holding a newer snapshot is
// left untouched.
func (a *MindmapArchive) Store(ctx context.Context, m *entities.Mindmap) error {
	document, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mindmap %s: %w", m.ID, err)
	}

	_, err = a.db.ExecContext(ctx, upsertMindmap,
		m.ID, m.Title, len(m.Nodes), string(document), utils.FormatSortable(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to store mindmap %s: %w", m.ID, err)
	}
	return nil
}

// Ping checks the database is reachable
func (a *MindmapArchive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the database
func (a *MindmapArchive) Close() error {
	return a.db.Close()
}
