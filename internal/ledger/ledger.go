// Package ledger persists pending-upload records in SQLite. An entry
// exists for every locally-produced artifact from the moment it is written
// until its remote persistence is confirmed, so a crash between the two
// leaves recoverable evidence.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"framelift/internal/domain"
	"framelift/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "framelift.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads but only one writer.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(jobID, artifactPath, destination string) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_uploads (job_id, artifact_path, destination, created_at, attempts)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(job_id) DO UPDATE SET
			artifact_path = excluded.artifact_path,
			destination = excluded.destination`,
		jobID, artifactPath, destination, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record pending upload for %s: %w", jobID, err)
	}
	return nil
}

func (s *Store) Confirm(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_uploads WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("confirm upload for %s: %w", jobID, err)
	}
	return nil
}

func (s *Store) Get(jobID string) (*domain.PendingUpload, error) {
	row := s.db.QueryRow(`
		SELECT job_id, artifact_path, destination, created_at, attempts
		FROM pending_uploads WHERE job_id = ?`, jobID)

	var p domain.PendingUpload
	err := row.Scan(&p.JobID, &p.ArtifactPath, &p.Destination, &p.CreatedAt, &p.Attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPending() ([]domain.PendingUpload, error) {
	rows, err := s.db.Query(`
		SELECT job_id, artifact_path, destination, created_at, attempts
		FROM pending_uploads ORDER BY created_at, job_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending uploads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pending []domain.PendingUpload
	for rows.Next() {
		var p domain.PendingUpload
		if err := rows.Scan(&p.JobID, &p.ArtifactPath, &p.Destination, &p.CreatedAt, &p.Attempts); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Store) IncrementAttempts(jobID string) error {
	_, err := s.db.Exec(`UPDATE pending_uploads SET attempts = attempts + 1 WHERE job_id = ?`, jobID)
	return err
}

var _ port.PendingLedger = (*Store)(nil)
