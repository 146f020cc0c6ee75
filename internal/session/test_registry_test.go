package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pymentor/internal/analysis"
)

type mapStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	saves int
	err   error
}

func newMapStore() *mapStore { return &mapStore{snaps: map[string]Snapshot{}} }

func (m *mapStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.snaps[snap.SessionID] = snap
	return nil
}

func (m *mapStore) Load(_ context.Context, id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

func testDeps() Deps {
	return Deps{
		Analyzer: &fakeAnalyzer{result: analysis.Result{CompletedRequirementIDs: []string{"req_2"}}},
		Tutor:    &fakeTutor{reply: "ok"},
		Policy:   DefaultPolicy(),
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	store := newMapStore()
	reg := NewRegistry(RegistryConfig{}, testDeps(), store)
	ctx := context.Background()

	c, err := reg.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, 1, reg.Len())
	assert.Contains(t, store.snaps, c.ID())

	got, err := reg.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	reg := NewRegistry(RegistryConfig{}, testDeps(), nil)
	ctx := context.Background()
	a, err := reg.Create(ctx)
	require.NoError(t, err)
	b, err := reg.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	_, err = a.ToggleRequirement("req_1")
	require.NoError(t, err)
	assert.True(t, a.Snapshot().Requirements[0].Completed)
	assert.False(t, b.Snapshot().Requirements[0].Completed)
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry(RegistryConfig{}, testDeps(), newMapStore())
	_, err := reg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = reg.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	noStore := NewRegistry(RegistryConfig{}, testDeps(), nil)
	_, err = noStore.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryRestoresFromStore(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()

	first := NewRegistry(RegistryConfig{}, testDeps(), store)
	c, err := first.Create(ctx)
	require.NoError(t, err)
	c.SetCode("x = 42")
	_, err = c.Analyze(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Persist(ctx, c.ID()))

	second := NewRegistry(RegistryConfig{}, testDeps(), store)
	restored, err := second.Get(ctx, c.ID())
	require.NoError(t, err)
	snap := restored.Snapshot()
	assert.Equal(t, "x = 42", snap.Code)
	assert.True(t, snap.Requirements[1].Completed)
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, 1, second.Len())
}

func TestRegistryEvictionSavesSnapshot(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	reg := NewRegistry(RegistryConfig{MaxSessions: 1, TTL: time.Hour}, testDeps(), store)

	a, err := reg.Create(ctx)
	require.NoError(t, err)
	a.SetCode("evicted")
	_, err = reg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "evicted", store.snaps[a.ID()].Code)

	back, err := reg.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, "evicted", back.Snapshot().Code)
}

func TestRegistryPersistUnknown(t *testing.T) {
	reg := NewRegistry(RegistryConfig{}, testDeps(), newMapStore())
	err := reg.Persist(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryCloseJoinsErrors(t *testing.T) {
	store := newMapStore()
	reg := NewRegistry(RegistryConfig{}, testDeps(), store)
	_, err := reg.Create(context.Background())
	require.NoError(t, err)
	_, err = reg.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, reg.Close(context.Background()))

	store.err = errors.New("disk full")
	err = reg.Close(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestRegistryStoreErrorSurfaces(t *testing.T) {
	store := &failingLoadStore{}
	reg := NewRegistry(RegistryConfig{}, testDeps(), store)
	_, err := reg.Get(context.Background(), "abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

type failingLoadStore struct{}

func (failingLoadStore) Save(context.Context, Snapshot) error { return nil }
func (failingLoadStore) Load(context.Context, string) (Snapshot, error) {
	return Snapshot{}, errors.New("connection refused")
}

func TestRegistryKeepsSessionWithAnalysisInFlight(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAnalyzer{
		result: analysis.Result{CompletedRequirementIDs: []string{"req_1"}},
		gate:   make(chan struct{}),
		seen:   make(chan string, 1),
	}
	deps := testDeps()
	deps.Analyzer = fa
	reg := NewRegistry(RegistryConfig{MaxSessions: 1, TTL: time.Hour}, deps, newMapStore())

	a, err := reg.Create(ctx)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(ctx)
		done <- err
	}()
	<-fa.seen

	_, err = reg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	back, err := reg.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Same(t, a, back)
	_, err = back.Analyze(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	close(fa.gate)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, fa.calls.Load())
	assert.True(t, back.Snapshot().Requirements[0].Completed)
}

func TestRegistryReleasesPinnedSessionOnceIdle(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	fa := &fakeAnalyzer{
		result: analysis.Result{CompletedRequirementIDs: []string{"req_1"}},
		gate:   make(chan struct{}),
		seen:   make(chan string, 1),
	}
	deps := testDeps()
	deps.Analyzer = fa
	reg := NewRegistry(RegistryConfig{MaxSessions: 1, TTL: time.Hour}, deps, store)

	a, err := reg.Create(ctx)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(ctx)
		done <- err
	}()
	<-fa.seen
	_, err = reg.Create(ctx)
	require.NoError(t, err)

	close(fa.gate)
	require.NoError(t, <-done)

	_, err = reg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.snaps[a.ID()].Requirements[0].Completed)
}

func TestRegistrySubscriberKeepsSessionPastTTL(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	reg := NewRegistry(RegistryConfig{TTL: 50 * time.Millisecond}, testDeps(), store)

	a, err := reg.Create(ctx)
	require.NoError(t, err)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Subscribe(subCtx)
	time.Sleep(200 * time.Millisecond)

	a.SetCode("still here")
	require.NoError(t, reg.Persist(ctx, a.ID()))
	back, err := reg.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Same(t, a, back)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "still here", store.snaps[a.ID()].Code)
}

func TestRegistryExpiredIdleSessionRestoresLatestState(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	reg := NewRegistry(RegistryConfig{TTL: 50 * time.Millisecond}, testDeps(), store)

	a, err := reg.Create(ctx)
	require.NoError(t, err)
	a.SetCode("before expiry")
	time.Sleep(200 * time.Millisecond)

	back, err := reg.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.NotSame(t, a, back)
	assert.Equal(t, "before expiry", back.Snapshot().Code)
}
