package snapshot

import (
	"context"
	"fmt"
	"strings"

	"pymentor/internal/session"
)

// Store persists session snapshots. It satisfies session.SnapshotStore.
type Store interface {
	Save(ctx context.Context, snap session.Snapshot) error
	Load(ctx context.Context, id string) (session.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return id, nil
}
