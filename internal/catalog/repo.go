package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/sowilo/internal/apperr"
)

// Submission is one row of the ledger, keyed by the photo's library path.
type Submission struct {
	Path            string    `json:"path"`
	Title           string    `json:"title"`
	SubmittedBy     string    `json:"submitted_by"`
	ApproximateDate string    `json:"approximate_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Upsert inserts or replaces the submission row for s.Path. CreatedAt is
// kept from the existing row on replace.
func (db *DB) Upsert(s Submission) error {
	_, err := db.conn.Exec(`
		INSERT INTO submissions (path, title, submitted_by, approximate_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title            = excluded.title,
			submitted_by     = excluded.submitted_by,
			approximate_date = excluded.approximate_date,
			updated_at       = excluded.updated_at
	`, s.Path, s.Title, s.SubmittedBy, s.ApproximateDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	return nil
}

// Get returns the submission row for path.
func (db *DB) Get(path string) (*Submission, error) {
	var s Submission
	err := db.conn.QueryRow(`
		SELECT path, title, submitted_by, approximate_date, created_at, updated_at
		FROM submissions WHERE path = ?
	`, path).Scan(&s.Path, &s.Title, &s.SubmittedBy, &s.ApproximateDate, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return &s, nil
}

// Delete removes the submission row for path, if present.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM submissions WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	return nil
}

// List returns all submissions, newest first.
func (db *DB) List() ([]Submission, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, submitted_by, approximate_date, created_at, updated_at
		FROM submissions ORDER BY created_at DESC, path
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.Path, &s.Title, &s.SubmittedBy, &s.ApproximateDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune removes rows whose path is not in keep and returns how many rows
// were dropped. Invoked from resync after the index has been reconciled.
func (db *DB) Prune(keep map[string]struct{}) (int, error) {
	rows, err := db.conn.Query(`SELECT path FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("catalog: prune query: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keep[p]; !ok {
			stale = append(stale, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range stale {
		if err := db.Delete(p); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
