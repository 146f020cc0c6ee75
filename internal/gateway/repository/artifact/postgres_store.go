package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps report bodies in a BYTEA column next to the session
// snapshots.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
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
CREATE TABLE IF NOT EXISTS report_artifacts (
  session_id TEXT NOT NULL,
  name TEXT NOT NULL,
  content BYTEA NOT NULL,
  content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
  size BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  PRIMARY KEY (session_id, name)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, sessionID, name string, content []byte, contentType string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO report_artifacts (session_id, name, content, content_type, size)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (session_id, name)
DO UPDATE SET content=EXCLUDED.content,
  content_type=EXCLUDED.content_type,
  size=EXCLUDED.size,
  created_at=NOW()`,
		sessionID, name, content, contentType, int64(len(content)))
	return err
}

func (s *PostgresStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM report_artifacts WHERE session_id = $1 AND name = $2`,
		sessionID, name).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return content, nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID string) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM report_artifacts WHERE session_id = $1 ORDER BY name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0, 4)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetURL is always empty; content is stored as a blob.
func (s *PostgresStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
