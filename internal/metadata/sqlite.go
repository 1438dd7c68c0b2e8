package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Lllllllleong/pdfvault/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	original_name TEXT NOT NULL DEFAULT '',
	storage_key   TEXT NOT NULL UNIQUE,
	size_bytes    INTEGER NOT NULL,
	page_count    INTEGER NOT NULL,
	content_hash  TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	text_preview  TEXT NOT NULL DEFAULT '',
	lineage       TEXT
)`

// SQLiteStore keeps records in an embedded SQLite database. Lineage is
// stored as a JSON column; SQLite's journaling gives the atomic-replace
// guarantee the file store implements by hand.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path with WAL mode on.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, record *models.DocumentRecord) error {
	var lineage any
	if record.Lineage != nil {
		data, err := json.Marshal(record.Lineage)
		if err != nil {
			return fmt.Errorf("failed to marshal lineage: %w", err)
		}
		lineage = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, original_name, storage_key, size_bytes, page_count, content_hash, created_at, text_preview, lineage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			original_name = excluded.original_name,
			storage_key   = excluded.storage_key,
			size_bytes    = excluded.size_bytes,
			page_count    = excluded.page_count,
			content_hash  = excluded.content_hash,
			created_at    = excluded.created_at,
			text_preview  = excluded.text_preview,
			lineage       = excluded.lineage`,
		record.ID, record.OriginalName, record.StorageKey, record.SizeBytes,
		record.PageCount, record.ContentHash, record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.TextPreview, lineage,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, original_name, storage_key, size_bytes, page_count, content_hash, created_at, text_preview, lineage
		FROM documents WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return record, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_name, storage_key, size_bytes, page_count, content_hash, created_at, text_preview, lineage
		FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []*models.DocumentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return records, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DocumentRecord, error) {
	var r models.DocumentRecord
	var createdAt string
	var lineage sql.NullString
	if err := row.Scan(&r.ID, &r.OriginalName, &r.StorageKey, &r.SizeBytes,
		&r.PageCount, &r.ContentHash, &createdAt, &r.TextPreview, &lineage); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	r.CreatedAt = ts
	if lineage.Valid {
		var l models.Lineage
		if err := json.Unmarshal([]byte(lineage.String), &l); err != nil {
			return nil, fmt.Errorf("failed to parse lineage: %w", err)
		}
		r.Lineage = &l
	}
	return &r, nil
}
