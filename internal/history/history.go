// Package history keeps a SQLite ledger of conversions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FocuswithJustin/fdx2fountain/core/errors"
	"github.com/FocuswithJustin/fdx2fountain/core/sqlite"
)

// Status is the outcome of one conversion.
type Status string

const (
	StatusConverted Status = "converted"
	StatusCached    Status = "cached"
	StatusFailed    Status = "failed"
)

// Entry is one recorded conversion.
type Entry struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Output      string    `json:"output,omitempty"`
	Digest      string    `json:"digest,omitempty"` // BLAKE3 of the decompressed source
	Paragraphs  int       `json:"paragraphs"`
	OutputBytes int       `json:"output_bytes"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT    NOT NULL,
	source       TEXT    NOT NULL,
	output       TEXT    NOT NULL DEFAULT '',
	digest       TEXT    NOT NULL DEFAULT '',
	paragraphs   INTEGER NOT NULL DEFAULT 0,
	output_bytes INTEGER NOT NULL DEFAULT 0,
	status       TEXT    NOT NULL,
	error        TEXT    NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS conversions_run_id ON conversions (run_id);
CREATE INDEX IF NOT EXISTS conversions_digest ON conversions (digest);
`

// Store persists conversion history in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, errors.NewIO("open history database", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.NewIO("migrate history database", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts e and returns its ID. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, errors.NewConfiguration("history store is not open")
	}
	if e.RunID == "" {
		return 0, errors.NewValidation("run_id", "run id is required")
	}
	if e.Source == "" {
		return 0, errors.NewValidation("source", "source is required")
	}
	switch e.Status {
	case StatusConverted, StatusCached, StatusFailed:
	default:
		return 0, errors.NewValidation("status", fmt.Sprintf("unknown status %q", e.Status))
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (
		   run_id, source, output, digest, paragraphs, output_bytes, status, error, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Source, e.Output, e.Digest, e.Paragraphs, e.OutputBytes,
		string(e.Status), e.Error, toMillis(e.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record conversion: %w", err)
	}
	return res.LastInsertId()
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	RunID string
	Limit int // 0 means no limit
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.NewConfiguration("history store is not open")
	}

	query := `SELECT id, run_id, source, output, digest, paragraphs, output_bytes, status, error, created_at
	          FROM conversions`
	var args []any
	if f.RunID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, f.RunID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			status  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Source, &e.Output, &e.Digest,
			&e.Paragraphs, &e.OutputBytes, &status, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		e.Status = Status(status)
		e.CreatedAt = fromMillis(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return entries, nil
}

// LastByDigest returns the newest successful conversion of a source with
// the given digest.
func (s *Store) LastByDigest(ctx context.Context, digest string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if s == nil || s.db == nil {
		return Entry{}, errors.NewConfiguration("history store is not open")
	}

	var (
		e       Entry
		status  string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, source, output, digest, paragraphs, output_bytes, status, error, created_at
		 FROM conversions
		 WHERE digest = ? AND status != ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		digest, string(StatusFailed),
	).Scan(&e.ID, &e.RunID, &e.Source, &e.Output, &e.Digest,
		&e.Paragraphs, &e.OutputBytes, &status, &e.Error, &created)
	if err == sql.ErrNoRows {
		return Entry{}, fmt.Errorf("no conversion with digest %s: %w", digest, errors.ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup conversion: %w", err)
	}
	e.Status = Status(status)
	e.CreatedAt = fromMillis(created)
	return e, nil
}
