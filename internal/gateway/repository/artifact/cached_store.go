package artifact

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 5 * time.Minute, MaxEntries: 256}
}

type CacheStats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	OriginReads uint64 `json:"originReads"`
}

// CachedStore keeps recently read or written report bodies in memory in
// front of a remote Store.
type CachedStore struct {
	origin Store
	blobs  *expirable.LRU[string, []byte]

	hits        atomic.Uint64
	misses      atomic.Uint64
	originReads atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &CachedStore{
		origin: origin,
		blobs:  expirable.NewLRU[string, []byte](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, sessionID, name string, content []byte, contentType string) error {
	if err := s.origin.Put(ctx, sessionID, name, content, contentType); err != nil {
		return err
	}
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return err
	}
	s.blobs.Add(objectKey(sessionID, name), append([]byte(nil), content...))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	sessionID, name, err := normalizeKey(sessionID, name)
	if err != nil {
		return nil, err
	}
	key := objectKey(sessionID, name)
	if raw, ok := s.blobs.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.misses.Add(1)
	s.originReads.Add(1)
	raw, err := s.origin.Get(ctx, sessionID, name)
	if err != nil {
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) GetURL(ctx context.Context, sessionID, name string) (string, error) {
	return s.origin.GetURL(ctx, sessionID, name)
}

func (s *CachedStore) List(ctx context.Context, sessionID string) ([]string, error) {
	return s.origin.List(ctx, sessionID)
}

func (s *CachedStore) Stats() CacheStats {
	return CacheStats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		OriginReads: s.originReads.Load(),
	}
}
