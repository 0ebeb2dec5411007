package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    root          TEXT NOT NULL,
    threshold     INTEGER NOT NULL,
    started_at    DATETIME NOT NULL,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    files         INTEGER NOT NULL DEFAULT 0,
    lines         INTEGER NOT NULL DEFAULT 0,
    skipped_lines INTEGER NOT NULL DEFAULT 0,
    pairs         INTEGER NOT NULL DEFAULT 0,
    match_count   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS matches (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    str1     TEXT NOT NULL,
    str2     TEXT NOT NULL,
    file1    TEXT NOT NULL,
    file2    TEXT NOT NULL,
    distance INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id, distance);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
