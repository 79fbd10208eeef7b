package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // driver: sqlite
)

// OpenDB opens the sqlite database at path and ensures the schema exists.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL DEFAULT '',
  published_at INTEGER NOT NULL,
  records INTEGER NOT NULL,
  scholars INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  row INTEGER NOT NULL,
  name TEXT NOT NULL,
  grp TEXT NOT NULL DEFAULT '',
  average REAL NOT NULL,
  scholarship INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS subject_scores (
  run_id TEXT NOT NULL,
  name TEXT NOT NULL,
  position INTEGER NOT NULL,
  subject TEXT NOT NULL,
  score REAL NOT NULL,
  grade TEXT NOT NULL,
  PRIMARY KEY (run_id, name, subject),
  FOREIGN KEY (run_id, name) REFERENCES students(run_id, name) ON DELETE CASCADE
);
`

// SQLiteWriter appends a run to a sqlite database; earlier runs are kept.
type SQLiteWriter struct{}

// Format implements Writer.
func (SQLiteWriter) Format() string { return "sqlite" }

// Write implements Writer.
func (SQLiteWriter) Write(ctx context.Context, path string, out Output) error {
	db, err := OpenDB(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = db.Close() }()
	return WriteRun(ctx, db, out)
}

// WriteRun stores out as one run inside a single transaction.
func WriteRun(ctx context.Context, db *sql.DB, out Output) error {
	runID := out.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	scholars := 0
	for _, r := range out.Records {
		if r.Scholarship {
			scholars++
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, published_at, records, scholars) VALUES (?, ?, ?, ?, ?)`,
		runID, out.Source, out.PublishedAt.Unix(), len(out.Records), scholars,
	); err != nil {
		return fmt.Errorf("%w: run: %v", ErrWrite, err)
	}

	students, err := tx.PrepareContext(ctx,
		`INSERT INTO students (run_id, row, name, grp, average, scholarship, rank) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = students.Close() }()
	scores, err := tx.PrepareContext(ctx,
		`INSERT INTO subject_scores (run_id, name, position, subject, score, grade) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = scores.Close() }()

	for _, r := range out.Records {
		if _, err := students.ExecContext(ctx, runID, r.Row, r.Name, r.Group, r.Average, r.Scholarship, r.Rank); err != nil {
			return fmt.Errorf("%w: student %q: %v", ErrWrite, r.Name, err)
		}
		for pos, subject := range out.Schema.Subjects {
			if _, err := scores.ExecContext(ctx, runID, r.Name, pos, subject, r.Subjects[subject], string(r.LetterGrades[subject])); err != nil {
				return fmt.Errorf("%w: score %q/%q: %v", ErrWrite, r.Name, subject, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWrite, err)
	}
	return nil
}
