package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// inTx runs fn inside a transaction, rolling back on error
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Run operations

const runColumns = `id, source_path, corpus_hash, config_hash, roots, merged_text,
	candidates_considered, candidates_used, groups_count, paragraph_count,
	warnings, duration_ms, created_at`

// saveRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) saveRunWithQuerier(ctx context.Context, q querier, run *Run, sources []RunSource, paragraphs []Paragraph) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", run.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("run %s: %w", run.ID, ErrAlreadyExists)
	}
	if err != sql.ErrNoRows {
		return err
	}

	roots, err := encodeStrings(run.Roots)
	if err != nil {
		return err
	}
	warnings, err := encodeStrings(run.Warnings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		run.ID, run.SourcePath, run.CorpusHash, run.ConfigHash, roots, run.Text,
		run.CandidatesConsidered, run.CandidatesUsed, run.Groups, len(paragraphs),
		warnings, run.Duration.Milliseconds(), run.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	run.ParagraphCount = len(paragraphs)

	for i := range sources {
		src := &sources[i]
		src.RunID = run.ID
		result, err := q.ExecContext(ctx,
			"INSERT INTO run_sources (run_id, name, size_bytes, is_root) VALUES (?, ?, ?, ?)",
			src.RunID, src.Name, src.SizeBytes, src.IsRoot)
		if err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Name, err)
		}
		if src.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	for i := range paragraphs {
		p := &paragraphs[i]
		p.RunID = run.ID
		result, err := q.ExecContext(ctx, `
			INSERT INTO paragraphs (run_id, paragraph_index, source_name, hash, content)
			VALUES (?, ?, ?, ?, ?)
		`, p.RunID, p.Index, p.SourceName, p.Hash, p.Content)
		if err != nil {
			return fmt.Errorf("failed to insert paragraph %d: %w", p.Index, err)
		}
		if p.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a run with its sources and paragraphs atomically
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *Run, sources []RunSource, paragraphs []Paragraph) error {
	return s.inTx(ctx, func(q querier) error {
		return s.saveRunWithQuerier(ctx, q, run, sources, paragraphs)
	})
}

func (s *SQLiteStorage) getRunWithQuerier(ctx context.Context, q querier, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	return scanRun(q.QueryRowContext(ctx, query, id))
}

// GetRun retrieves a run by ID
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.getRunWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getRunByHashWithQuerier(ctx context.Context, q querier, corpusHash, configHash string) (*Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE corpus_hash = ? AND config_hash = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	return scanRun(q.QueryRowContext(ctx, query, corpusHash, configHash))
}

// GetRunByHash returns the newest run for the same input and settings
func (s *SQLiteStorage) GetRunByHash(ctx context.Context, corpusHash, configHash string) (*Run, error) {
	return s.getRunByHashWithQuerier(ctx, s.querier(), corpusHash, configHash)
}

func (s *SQLiteStorage) listRunsWithQuerier(ctx context.Context, q querier, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRuns returns runs newest first; limit <= 0 returns all
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.listRunsWithQuerier(ctx, s.querier(), limit)
}

func (s *SQLiteStorage) deleteRunWithQuerier(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM paragraphs WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete paragraphs: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM run_sources WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete sources: %w", err)
	}
	result, err := q.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRun removes a run and everything stored with it
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	return s.inTx(ctx, func(q querier) error {
		return s.deleteRunWithQuerier(ctx, q, id)
	})
}

// Source and paragraph operations

func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier, runID string) ([]*RunSource, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_id, name, size_bytes, is_root
		FROM run_sources
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sources []*RunSource
	for rows.Next() {
		var src RunSource
		if err := rows.Scan(&src.ID, &src.RunID, &src.Name, &src.SizeBytes, &src.IsRoot); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// ListSources returns the files a run read, in insertion order
func (s *SQLiteStorage) ListSources(ctx context.Context, runID string) ([]*RunSource, error) {
	return s.listSourcesWithQuerier(ctx, s.querier(), runID)
}

func (s *SQLiteStorage) listParagraphsWithQuerier(ctx context.Context, q querier, runID string) ([]*Paragraph, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_id, paragraph_index, source_name, hash, content
		FROM paragraphs
		WHERE run_id = ?
		ORDER BY paragraph_index
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var paragraphs []*Paragraph
	for rows.Next() {
		var p Paragraph
		if err := rows.Scan(&p.ID, &p.RunID, &p.Index, &p.SourceName, &p.Hash, &p.Content); err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, &p)
	}
	return paragraphs, rows.Err()
}

// ListParagraphs returns a run's paragraphs in output order
func (s *SQLiteStorage) ListParagraphs(ctx context.Context, runID string) ([]*Paragraph, error) {
	return s.listParagraphsWithQuerier(ctx, s.querier(), runID)
}

// SearchParagraphs performs BM25 full-text search, optionally within one run
func (s *SQLiteStorage) SearchParagraphs(ctx context.Context, query string, limit int, runID string) ([]ParagraphHit, error) {
	return searchParagraphs(ctx, s.querier(), query, limit, runID)
}

// GetStatus retrieves store statistics
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{BuildMode: BuildMode}

	counts := []struct {
		table string
		dst   *int
	}{
		{"runs", &status.RunsCount},
		{"run_sources", &status.SourcesCount},
		{"paragraphs", &status.ParagraphsCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM runs").Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		status.LastRunAt = time.Unix(0, last.Int64)
	}

	// Calculate database size
	var pageCount, pageSize int
	err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var name string
	ftsErr := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='paragraphs_fts'").Scan(&name)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      ftsErr == nil,
	}
	return status, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		roots      string
		warnings   string
		durationMS int64
		created    int64
	)
	err := row.Scan(
		&run.ID, &run.SourcePath, &run.CorpusHash, &run.ConfigHash, &roots, &run.Text,
		&run.CandidatesConsidered, &run.CandidatesUsed, &run.Groups, &run.ParagraphCount,
		&warnings, &durationMS, &created,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roots), &run.Roots); err != nil {
		return nil, fmt.Errorf("run %s: invalid roots: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return nil, fmt.Errorf("run %s: invalid warnings: %w", run.ID, err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.CreatedAt = time.Unix(0, created)
	return &run, nil
}

func encodeStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Transaction implementations
// Write operations run on the transaction; aggregate reads use the main handle.

func (t *sqliteTx) SaveRun(ctx context.Context, run *Run, sources []RunSource, paragraphs []Paragraph) error {
	return t.storage.saveRunWithQuerier(ctx, t.querier(), run, sources, paragraphs)
}

func (t *sqliteTx) GetRun(ctx context.Context, id string) (*Run, error) {
	return t.storage.getRunWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetRunByHash(ctx context.Context, corpusHash, configHash string) (*Run, error) {
	return t.storage.getRunByHashWithQuerier(ctx, t.querier(), corpusHash, configHash)
}

func (t *sqliteTx) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return t.storage.listRunsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) DeleteRun(ctx context.Context, id string) error {
	return t.storage.deleteRunWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListSources(ctx context.Context, runID string) ([]*RunSource, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) ListParagraphs(ctx context.Context, runID string) ([]*Paragraph, error) {
	return t.storage.listParagraphsWithQuerier(ctx, t.querier(), runID)
}

func (t *sqliteTx) SearchParagraphs(ctx context.Context, query string, limit int, runID string) ([]ParagraphHit, error) {
	return searchParagraphs(ctx, t.querier(), query, limit, runID)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*StoreStatus, error) {
	return nil, errors.New("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
