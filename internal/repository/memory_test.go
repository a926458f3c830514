package repository

import (
	"context"
	"testing"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAvailabilityCache(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		av := &models.Availability{BookID: 1, Total: 3, Available: 2}
		err := cache.SetAvailability(ctx, av)
		require.NoError(t, err)

		got, err := cache.GetAvailability(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, av, got)
	})

	t.Run("MissReturnsNil", func(t *testing.T) {
		got, err := cache.GetAvailability(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Invalidate", func(t *testing.T) {
		err := cache.Invalidate(ctx, 1)
		require.NoError(t, err)
		got, _ := cache.GetAvailability(ctx, 1)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(456)
		allowed, _ := cache.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = cache.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = cache.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.False(t, allowed)

		// Wait for expiry
		time.Sleep(time.Second + 10*time.Millisecond)
		allowed, _ = cache.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
	})
}

func TestMemoryAvailabilityCache_TTLExpiry(t *testing.T) {
	cache := NewMemoryAvailabilityCache(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.SetAvailability(ctx, &models.Availability{BookID: 1, Total: 1, Available: 1}))

	time.Sleep(80 * time.Millisecond)

	got, err := cache.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
