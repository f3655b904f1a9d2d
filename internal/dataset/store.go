package dataset

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store mirrors the dataset into a SQLite database so downstream
// tooling can query it without re-parsing the CSV. Each pipeline run
// gets its own run id; rows from earlier runs are kept.
type Store struct {
	db    *sql.DB
	runID string
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, runID: uuid.NewString()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID returns the identifier of the current pipeline run.
func (s *Store) RunID() string {
	return s.runID
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS advisory_rows (
			run_id          TEXT NOT NULL REFERENCES runs(id),
			ghsa_id         TEXT NOT NULL,
			ecosystem       TEXT NOT NULL,
			repo_url        TEXT NOT NULL,
			repo_dir        TEXT NOT NULL,
			vulnerable_ref  TEXT NOT NULL,
			patched_ref     TEXT NOT NULL,
			diff_strategy   TEXT NOT NULL,
			git_diff_path   TEXT NOT NULL,
			diff_paths      TEXT NOT NULL,
			ast_diff_paths  TEXT NOT NULL,
			localized_hunks TEXT NOT NULL,
			prompts_dir     TEXT NOT NULL,
			PRIMARY KEY (run_id, ghsa_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveRun persists all rows of the current run. Called once, after the
// whole advisory list has been attempted.
func (s *Store) SaveRun(rows []Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(
			`INSERT INTO advisory_rows (
				run_id, ghsa_id, ecosystem, repo_url, repo_dir,
				vulnerable_ref, patched_ref, diff_strategy, git_diff_path,
				diff_paths, ast_diff_paths, localized_hunks, prompts_dir
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.runID, row.AdvisoryID, row.Ecosystem, row.RepoURL, row.RepoDir,
			row.OldRef, row.NewRef, row.Strategy, row.FullDiffPath,
			encodeJSON(row.DiffPaths), encodeJSON(row.ASTDiffPaths),
			encodeJSON(row.LocalizedHunk), row.PromptsDir,
		); err != nil {
			return fmt.Errorf("insert row %s: %w", row.AdvisoryID, err)
		}
	}

	return tx.Commit()
}

// RowCount returns the number of rows stored for the given run.
func (s *Store) RowCount(runID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM advisory_rows WHERE run_id = ?`, runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}
