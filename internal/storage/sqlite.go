package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		content_type TEXT,
		characters INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ingestions_session ON ingestions(session_id, created_at);

	CREATE TABLE IF NOT EXISTS ingestion_chunks (
		ingestion_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		source TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (ingestion_id, chunk_index),
		FOREIGN KEY (ingestion_id) REFERENCES ingestions(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordIngestion inserts rec and its chunks in one transaction. An empty rec.ID
// is replaced by a new UUID; a zero CreatedAt by the current time.
func (s *SQLiteStorage) RecordIngestion(ctx context.Context, rec *models.Ingestion, chunks []*models.Chunk) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingestions (id, session_id, url, title, content_type, characters, chunks, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.URL, rec.Title, rec.ContentType, rec.Characters, rec.Chunks,
		rec.Status, rec.Error, rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingestion: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO ingestion_chunks (ingestion_id, chunk_index, chunk_id, source, start_offset, end_offset, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer stmt.Close()
		for _, ch := range chunks {
			if _, err := stmt.ExecContext(ctx, rec.ID, ch.Index, ch.ID, ch.Source, ch.Offset, ch.End, ch.Content); err != nil {
				return fmt.Errorf("failed to insert chunk %d: %w", ch.Index, err)
			}
		}
	}
	return tx.Commit()
}

const ingestionColumns = `id, session_id, url, title, content_type, characters, chunks, status, error, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIngestion(row rowScanner) (*models.Ingestion, error) {
	var rec models.Ingestion
	var title, contentType, errText sql.NullString
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.URL, &title, &contentType, &rec.Characters,
		&rec.Chunks, &rec.Status, &errText, &rec.DurationMS, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Title = title.String
	rec.ContentType = contentType.String
	rec.Error = errText.String
	return &rec, nil
}

// GetIngestion returns an ingestion by ID.
func (s *SQLiteStorage) GetIngestion(ctx context.Context, id string) (*models.Ingestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ingestionColumns+` FROM ingestions WHERE id = ?`, id)
	rec, err := scanIngestion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ingestion %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListIngestions returns a session's ingestions, newest first.
func (s *SQLiteStorage) ListIngestions(ctx context.Context, sessionID string, limit int) ([]*models.Ingestion, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ingestionColumns+` FROM ingestions WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Ingestion
	for rows.Next() {
		rec, err := scanIngestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetIngestionChunks returns the chunks stored for an ingestion in chunk order.
func (s *SQLiteStorage) GetIngestionChunks(ctx context.Context, ingestionID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, source, chunk_index, start_offset, end_offset, content
		 FROM ingestion_chunks WHERE ingestion_id = ? ORDER BY chunk_index`, ingestionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.ID, &ch.Source, &ch.Index, &ch.Offset, &ch.End, &ch.Content); err != nil {
			return nil, err
		}
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// DeleteSession removes all ingestions of a session and their chunks.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ingestions WHERE session_id = ?`, sessionID)
	return err
}

// CountIngestions returns the total number of recorded ingestions.
func (s *SQLiteStorage) CountIngestions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestions`).Scan(&n)
	return n, err
}

// DiskUsage returns the bytes used by the database file and its journal side files.
// Side files that do not exist count as zero.
func (s *SQLiteStorage) DiskUsage() (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm", s.path + "-journal"} {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", p, err)
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
