package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Store persists completed scan runs and their matches.
type Store interface {
	// SaveRun inserts a run with all of its matches in one transaction and
	// returns the run ID.
	SaveRun(run RunRecord, matches []MatchRecord) (int64, error)
	// ListRuns returns the most recent runs first, at most limit (0 = all).
	ListRuns(limit int) ([]RunRecord, error)
	// GetRun returns a run by ID.
	GetRun(id int64) (RunRecord, error)
	// Matches returns the matches of a run ordered by distance.
	Matches(runID int64) ([]MatchRecord, error)
	// DeleteRun removes a run and its matches.
	DeleteRun(id int64) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveRun(run RunRecord, matches []MatchRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (root, threshold, started_at, duration_ms, files, lines, skipped_lines, pairs, match_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Root, run.Threshold, run.StartedAt.UTC(), run.Duration.Milliseconds(),
		run.Files, run.Lines, run.SkippedLines, run.Pairs, len(matches),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		"INSERT INTO matches (run_id, str1, str2, file1, file2, distance) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.Exec(runID, m.Str1, m.Str2, m.File1, m.File2, m.Distance); err != nil {
			return 0, fmt.Errorf("insert match: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

const runColumns = "id, root, threshold, started_at, duration_ms, files, lines, skipped_lines, pairs, match_count"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var r RunRecord
	var durationMS int64
	err := row.Scan(&r.ID, &r.Root, &r.Threshold, &r.StartedAt, &durationMS,
		&r.Files, &r.Lines, &r.SkippedLines, &r.Pairs, &r.MatchCount)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, err
}

func (s *SQLiteStore) ListRuns(limit int) ([]RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) GetRun(id int64) (RunRecord, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return r, err
}

func (s *SQLiteStore) Matches(runID int64) ([]MatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, str1, str2, file1, file2, distance
		FROM matches
		WHERE run_id = ?
		ORDER BY distance, id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ID, &m.RunID, &m.Str1, &m.Str2, &m.File1, &m.File2, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches WHERE run_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := checkDeleted(id, res); err != nil {
		return err
	}
	return tx.Commit()
}

// checkDeleted reports ErrRunNotFound when the delete touched no run.
func checkDeleted(id int64, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
