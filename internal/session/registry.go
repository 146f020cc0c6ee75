package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"pymentor/internal/requirement"
)

// SnapshotStore persists sessions beyond the in-memory registry.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
}

// ErrSnapshotNotFound is returned by SnapshotStore.Load for unknown ids.
var ErrSnapshotNotFound = errors.New("session: snapshot not found")

type RegistryConfig struct {
	MaxSessions int
	TTL         time.Duration
	// Catalog is cloned for every new session.
	Catalog *requirement.Catalog
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 1024
	}
	if c.TTL <= 0 {
		c.TTL = 2 * time.Hour
	}
	if c.Catalog == nil {
		c.Catalog = requirement.Default()
	}
	return c
}

// Registry owns the live controllers, keyed by session id. Idle sessions
// expire from memory and are written to the snapshot store on the way out.
// A session with a model call in flight or an attached subscriber is never
// dropped: eviction moves it to the pinned set, where Get still finds it.
type Registry struct {
	cfg   RegistryConfig
	deps  Deps
	store SnapshotStore
	log   *zap.Logger

	mu    sync.Mutex
	cache *expirable.LRU[string, *Controller]

	pinMu  sync.Mutex
	pinned map[string]*Controller
}

func NewRegistry(cfg RegistryConfig, deps Deps, store SnapshotStore) *Registry {
	cfg = cfg.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		cfg:    cfg,
		deps:   deps,
		store:  store,
		log:    logger.Named("registry"),
		pinned: make(map[string]*Controller),
	}
	r.cache = expirable.NewLRU[string, *Controller](cfg.MaxSessions, r.onEvict, cfg.TTL)
	return r
}

// onEvict runs under the cache lock; it must not call back into the cache.
func (r *Registry) onEvict(id string, c *Controller) {
	if c.Active() {
		r.pinMu.Lock()
		r.pinned[id] = c
		r.pinMu.Unlock()
		r.log.Debug("active session pinned", zap.String("session", id))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.save(ctx, c); err != nil {
		r.log.Warn("snapshot on eviction failed", zap.String("session", id), zap.Error(err))
		return
	}
	r.log.Debug("session evicted", zap.String("session", id))
}

func (r *Registry) newController(id string) (*Controller, error) {
	return NewController(id, r.cfg.Catalog.Clone(), r.deps)
}

// Create starts a fresh session with the starter code and an unchecked catalog.
func (r *Registry) Create(ctx context.Context) (*Controller, error) {
	r.releaseIdle(ctx)
	id := uuid.NewString()
	c, err := r.newController(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache.Add(id, c)
	r.mu.Unlock()
	if err := r.save(ctx, c); err != nil {
		r.log.Warn("initial snapshot failed", zap.String("session", id), zap.Error(err))
	}
	r.log.Info("session created", zap.String("session", id))
	return c, nil
}

// Get returns the live controller for id, restoring it from the snapshot
// store when it is no longer in memory.
func (r *Registry) Get(ctx context.Context, id string) (*Controller, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cache.Get(id); ok {
		r.cache.Add(id, c)
		return c, nil
	}
	// An expired entry the janitor has not reaped yet goes through onEvict
	// first, so an active controller is pinned rather than replaced.
	r.cache.Remove(id)
	if c, ok := r.unpin(id); ok {
		r.cache.Add(id, c)
		return c, nil
	}
	r.releaseIdle(ctx)
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	snap, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("session: load snapshot %s: %w", id, err)
	}
	c, err := r.newController(id)
	if err != nil {
		return nil, err
	}
	c.Restore(snap)
	r.cache.Add(id, c)
	r.log.Info("session restored", zap.String("session", id))
	return c, nil
}

// Persist writes the current state of id to the snapshot store.
func (r *Registry) Persist(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.cache.Peek(id)
	flushed := false
	if !ok {
		flushed = r.cache.Remove(id)
	}
	r.mu.Unlock()
	if !ok {
		r.pinMu.Lock()
		c, ok = r.pinned[id]
		r.pinMu.Unlock()
	}
	if !ok {
		if flushed {
			// onEvict already wrote the snapshot.
			return nil
		}
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return r.save(ctx, c)
}

func (r *Registry) unpin(id string) (*Controller, bool) {
	r.pinMu.Lock()
	defer r.pinMu.Unlock()
	c, ok := r.pinned[id]
	if ok {
		delete(r.pinned, id)
	}
	return c, ok
}

// releaseIdle saves and drops pinned sessions that are no longer active.
func (r *Registry) releaseIdle(ctx context.Context) {
	r.pinMu.Lock()
	var idle []*Controller
	for id, c := range r.pinned {
		if !c.Active() {
			idle = append(idle, c)
			delete(r.pinned, id)
		}
	}
	r.pinMu.Unlock()
	for _, c := range idle {
		if err := r.save(ctx, c); err != nil {
			r.log.Warn("snapshot on release failed", zap.String("session", c.ID()), zap.Error(err))
		}
	}
}

func (r *Registry) pinnedControllers() []*Controller {
	r.pinMu.Lock()
	defer r.pinMu.Unlock()
	out := make([]*Controller, 0, len(r.pinned))
	for _, c := range r.pinned {
		out = append(out, c)
	}
	return out
}

func (r *Registry) save(ctx context.Context, c *Controller) error {
	if r.store == nil || c == nil {
		return nil
	}
	return r.store.Save(ctx, c.Snapshot())
}

// Len counts cached and pinned sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	n := r.cache.Len()
	r.mu.Unlock()
	r.pinMu.Lock()
	defer r.pinMu.Unlock()
	return n + len(r.pinned)
}

// Close writes every live session to the snapshot store.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	live := r.cache.Values()
	r.mu.Unlock()
	live = append(live, r.pinnedControllers()...)
	var errs []error
	for _, c := range live {
		if err := r.save(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", c.ID(), err))
		}
	}
	return errors.Join(errs...)
}
