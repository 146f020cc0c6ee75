package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pymentor/internal/session"
)

type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgres opens dsn through the pgx driver.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS session_snapshots (
  session_id TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  progress_percent INTEGER NOT NULL DEFAULT 0,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_session_snapshots_updated_at ON session_snapshots (updated_at);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, snap session.Snapshot) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	id, err := normalizeID(snap.SessionID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO session_snapshots (session_id, payload, progress_percent, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (session_id)
DO UPDATE SET payload=EXCLUDED.payload,
  progress_percent=EXCLUDED.progress_percent,
  updated_at=EXCLUDED.updated_at`,
		id, payload, snap.Progress.Percent)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (session.Snapshot, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return session.Snapshot{}, fmt.Errorf("ensure schema: %w", err)
	}
	id, err := normalizeID(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	var payload []byte
	err = s.db.QueryRowContext(ctx, `SELECT payload FROM session_snapshots WHERE session_id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Snapshot{}, session.ErrSnapshotNotFound
		}
		return session.Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE session_id = $1`, id)
	return err
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
