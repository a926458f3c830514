package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
)

// recoveryProbeInterval is how long the failover waits before retrying the
// primary after it tripped.
const recoveryProbeInterval = time.Minute

// FailoverAvailabilityCache serves from the primary (redis) until it fails,
// then trips to the in-memory fallback and periodically probes recovery.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed primary attempt
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverAvailabilityCache) trip(err error) {
	r.logger.Error().Err(err).Msg("primary cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// shouldProbe reports whether enough time has passed to retry the primary.
func (r *FailoverAvailabilityCache) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryProbeInterval
}

func (r *FailoverAvailabilityCache) GetAvailability(ctx context.Context, bookID int64) (*models.Availability, error) {
	if !r.isDown.Load() {
		av, err := r.primary.GetAvailability(ctx, bookID)
		if err == nil {
			return av, nil
		}
		r.trip(err)
	} else if r.shouldProbe() {
		av, err := r.primary.GetAvailability(ctx, bookID)
		if err == nil {
			r.isDown.Store(false)
			return av, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetAvailability(ctx, bookID)
}

func (r *FailoverAvailabilityCache) SetAvailability(ctx context.Context, av *models.Availability) error {
	if !r.isDown.Load() {
		err := r.primary.SetAvailability(ctx, av)
		if err == nil {
			return nil
		}
		r.trip(err)
	}
	return r.fallback.SetAvailability(ctx, av)
}

func (r *FailoverAvailabilityCache) Invalidate(ctx context.Context, bookID int64) error {
	// Invalidation goes to both sides: a stale snapshot on either layer
	// would outlive the inventory change.
	var primaryErr error
	if !r.isDown.Load() {
		primaryErr = r.primary.Invalidate(ctx, bookID)
		if primaryErr != nil {
			r.trip(primaryErr)
		}
	}
	return r.fallback.Invalidate(ctx, bookID)
}

func (r *FailoverAvailabilityCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		ok, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return ok, nil
		}
		r.trip(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
