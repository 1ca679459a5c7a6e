package ai

import (
	"sync"
	"time"

	"crisp/internal/models"
)

// ResultCache keeps parsed resumes for a while so re-uploads skip the model.
type ResultCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	result    models.MissingInfo
	expiresAt time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (rc *ResultCache) Set(key string, result models.MissingInfo) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.evictExpiredLocked()
	rc.cache[key] = &cacheEntry{
		result:    result,
		expiresAt: rc.now().Add(rc.ttl),
	}
}

func (rc *ResultCache) Get(key string) (models.MissingInfo, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entry, exists := rc.cache[key]
	if !exists || rc.now().After(entry.expiresAt) {
		return models.MissingInfo{}, false
	}
	return entry.result, true
}

func (rc *ResultCache) Size() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.cache)
}

func (rc *ResultCache) evictExpiredLocked() {
	now := rc.now()
	for key, entry := range rc.cache {
		if now.After(entry.expiresAt) {
			delete(rc.cache, key)
		}
	}
}
