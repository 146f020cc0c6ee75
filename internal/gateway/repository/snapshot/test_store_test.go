package snapshot

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymentor/internal/conversation"
	"pymentor/internal/requirement"
	"pymentor/internal/session"
)

func sampleSnapshot(id string) session.Snapshot {
	items := requirement.Default().Items()
	items[0].Completed = true
	return session.Snapshot{
		SessionID:    id,
		Code:         "todos = []",
		Requirements: items,
		Messages: []conversation.Turn{
			{Role: conversation.RoleUser, Text: "Comment faire une boucle ?"},
			{Role: conversation.RoleModel, Text: "Essaie while True."},
		},
		Progress: requirement.Progress{Completed: 1, Total: len(items), Percent: 20},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSnapshotNotFound)

	want := sampleSnapshot("s-1")
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx, " s-1 ")
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.Requirements, got.Requirements)
	assert.Equal(t, want.Messages, got.Messages)
	assert.Equal(t, want.Progress, got.Progress)

	want.Code = "todos = ['a']"
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "todos = ['a']", got.Code)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, session.ErrSnapshotNotFound)

	assert.Error(t, store.Save(ctx, session.Snapshot{}))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreDoesNotAlias(t *testing.T) {
	store := NewMemoryStore()
	snap := sampleSnapshot("s-2")
	require.NoError(t, store.Save(context.Background(), snap))
	snap.Messages[0].Text = "mutated"

	got, err := store.Load(context.Background(), "s-2")
	require.NoError(t, err)
	assert.Equal(t, "Comment faire une boucle ?", got.Messages[0].Text)
	assert.Equal(t, 1, store.Len())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}
