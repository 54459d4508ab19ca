// internal/sink/sqlite.go
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/casecrawl/pkg/models"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS case_records (
	position          INTEGER PRIMARY KEY,
	row_id            TEXT NOT NULL,
	case_number       TEXT NOT NULL,
	title             TEXT NOT NULL,
	doc_type          TEXT NOT NULL,
	case_reason       TEXT NOT NULL,
	department        TEXT NOT NULL,
	level             TEXT NOT NULL,
	close_date        TEXT NOT NULL,
	detail_param      TEXT NOT NULL,
	detail_url        TEXT NOT NULL,
	row_index         INTEGER NOT NULL,
	page_number       INTEGER NOT NULL,
	detail_text       TEXT NOT NULL,
	detail_fetched_at TEXT NOT NULL,
	content_length    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_case_records_case_number ON case_records(case_number);
`

const insertRecord = `
INSERT INTO case_records (
	position, row_id, case_number, title, doc_type, case_reason, department,
	level, close_date, detail_param, detail_url, row_index, page_number,
	detail_text, detail_fetched_at, content_length
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink mirrors the record set into a case_records table
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteSink{db: db, path: path}, nil
}

// Snapshot replaces the table contents with records in one transaction
func (s *SQLiteSink) Snapshot(ctx context.Context, records []models.CaseRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM case_records"); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		fetched := ""
		if !r.FetchedAt.IsZero() {
			fetched = r.FetchedAt.Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx,
			i, r.RowID, r.CaseNumber, r.Title, r.DocType, r.CaseReason, r.Department,
			r.Level, r.CloseDate, r.DetailParam, r.DetailURL, r.RowIndex, r.PageNumber,
			r.DetailText, fetched, r.ContentLength,
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.CaseNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	log.Debug().Int("records", len(records)).Str("db", s.path).Msg("Database snapshot written")
	return nil
}

// Count returns the number of stored records
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_records").Scan(&n)
	return n, err
}

// CaseNumbers returns the stored case numbers in snapshot order
func (s *SQLiteSink) CaseNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT case_number FROM case_records ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
