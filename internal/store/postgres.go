package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Gateway, worker and CLI may all start against the same database.
	const lockID = 727100401

	// Advisory locks belong to a session, so lock, migrate and unlock on
	// one connection.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			title TEXT,
			model TEXT,
			categories TEXT[],
			videos INT,
			status TEXT,
			error TEXT DEFAULT '',
			cost_usd DOUBLE PRECISION DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now(),
			finished_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS item_results (
			run_id UUID REFERENCES runs(id) ON DELETE CASCADE,
			ord INT,
			video_id TEXT,
			title TEXT,
			url TEXT,
			status TEXT,
			category TEXT,
			summary TEXT,
			PRIMARY KEY (run_id, ord)
		);`,
		`CREATE INDEX IF NOT EXISTS item_results_category_idx ON item_results (run_id, category);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = StatusQueued
	}
	run.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs(id, title, model, categories, videos, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)`,
		run.ID, run.Title, run.Model, pq.Array(pqStringArray(run.Categories)), run.Videos, run.Status, run.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var (
		run        Run
		categories []string
		finished   sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, model, categories, videos, status, error, cost_usd, created_at, finished_at
		FROM runs WHERE id=$1`, id)
	err := row.Scan(&run.ID, &run.Title, &run.Model, pq.Array(&categories), &run.Videos,
		&run.Status, &run.Error, &run.CostUSD, &run.CreatedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.Categories = categories
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, costUSD float64, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status=$1, cost_usd=$2, error=$3, finished_at=now() WHERE id=$4`,
		status, costUSD, errMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SaveResults replaces every stored result of the run.
func (s *PostgresStore) SaveResults(ctx context.Context, runID uuid.UUID, results []ItemResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_results WHERE run_id=$1`, runID); err != nil {
		return err
	}
	for _, r := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_results(run_id, ord, video_id, title, url, status, category, summary)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			runID, r.Ord, r.VideoID, r.Title, r.URL, r.Status, r.Category, r.Summary)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListResults(ctx context.Context, runID uuid.UUID) ([]ItemResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, video_id, title, url, status, category, summary
		FROM item_results WHERE run_id=$1 ORDER BY ord`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ItemResult
	for rows.Next() {
		r := ItemResult{RunID: runID}
		if err := rows.Scan(&r.Ord, &r.VideoID, &r.Title, &r.URL, &r.Status, &r.Category, &r.Summary); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func pqStringArray(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return items
}
