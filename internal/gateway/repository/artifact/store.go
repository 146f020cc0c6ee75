package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists exported session reports, keyed by session id and file name.
type Store interface {
	Put(ctx context.Context, sessionID, name string, content []byte, contentType string) error
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	// GetURL returns a direct download link, or "" when the backend cannot
	// serve one and the gateway must stream the object itself.
	GetURL(ctx context.Context, sessionID, name string) (string, error)
	List(ctx context.Context, sessionID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

func normalizeKey(sessionID, name string) (string, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if sessionID == "" {
		return "", "", fmt.Errorf("session_id is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return sessionID, name, nil
}

func objectKey(sessionID, name string) string {
	return strings.TrimSuffix(sessionID, "/") + "/" + strings.TrimLeft(name, "/")
}
