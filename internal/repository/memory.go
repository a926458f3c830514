package repository

import (
	"context"
	"sync"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback used when redis is not
// configured or unreachable.
type MemoryAvailabilityCache struct {
	entries    sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

type cacheEntry struct {
	av        models.Availability
	expiresAt time.Time
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = models.DefaultCacheTTL * time.Second
	}
	return &MemoryAvailabilityCache{ttl: ttl}
}

func (r *MemoryAvailabilityCache) GetAvailability(ctx context.Context, bookID int64) (*models.Availability, error) {
	val, ok := r.entries.Load(bookID)
	if !ok {
		return nil, nil
	}
	entry := val.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.entries.Delete(bookID)
		return nil, nil
	}
	av := entry.av
	return &av, nil
}

func (r *MemoryAvailabilityCache) SetAvailability(ctx context.Context, av *models.Availability) error {
	r.entries.Store(av.BookID, cacheEntry{av: *av, expiresAt: time.Now().Add(r.ttl)})
	return nil
}

func (r *MemoryAvailabilityCache) Invalidate(ctx context.Context, bookID int64) error {
	r.entries.Delete(bookID)
	return nil
}

func (r *MemoryAvailabilityCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, _ := r.rateLimits.LoadOrStore(userID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
		return true, nil
	}

	entry.count++
	return entry.count <= limit, nil
}
