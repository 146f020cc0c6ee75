package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedStoreServesFromMemory(t *testing.T) {
	ctx := context.Background()
	origin := NewMemoryStore()
	require.NoError(t, origin.Put(ctx, "s1", "report.md", []byte("v1"), ""))
	cached := NewCachedStore(origin, CacheConfig{})

	got, err := cached.Get(ctx, "s1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	got, err = cached.Get(ctx, "s1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, OriginReads: 1}, cached.Stats())
}

func TestCachedStoreWriteThrough(t *testing.T) {
	ctx := context.Background()
	origin := NewMemoryStore()
	cached := NewCachedStore(origin, CacheConfig{})

	require.NoError(t, cached.Put(ctx, "s1", "report.md", []byte("v2"), "text/markdown"))
	fromOrigin, err := origin.Get(ctx, "s1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(fromOrigin))

	got, err := cached.Get(ctx, "s1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
	assert.Equal(t, uint64(0), cached.Stats().OriginReads)

	names, err := cached.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.md"}, names)
}

func TestCachedStoreMissPropagates(t *testing.T) {
	cached := NewCachedStore(NewMemoryStore(), CacheConfig{})
	_, err := cached.Get(context.Background(), "s1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
