package servicelock

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireAndRelease(t *testing.T) {
	registry := NewRegistry()
	serviceID := uuid.New()
	firstOrder := uuid.New()
	secondOrder := uuid.New()

	require.True(t, registry.TryAcquire(serviceID, firstOrder))
	assert.False(t, registry.TryAcquire(serviceID, secondOrder), "second order must be rejected while first holds the lock")

	// Re-acquiring by the holder is allowed.
	assert.True(t, registry.TryAcquire(serviceID, firstOrder))

	registry.Release(serviceID, firstOrder)
	assert.True(t, registry.TryAcquire(serviceID, secondOrder))
}

func TestReleaseByNonHolderKeepsLock(t *testing.T) {
	registry := NewRegistry()
	serviceID := uuid.New()
	holder := uuid.New()
	other := uuid.New()

	require.True(t, registry.TryAcquire(serviceID, holder))
	registry.Release(serviceID, other)

	got, held := registry.Holder(serviceID)
	require.True(t, held)
	assert.Equal(t, holder, got)
}

func TestReleaseWithoutHolderIsNoop(t *testing.T) {
	registry := NewRegistry()
	registry.Release(uuid.New(), uuid.New())
}

func TestIndependentServices(t *testing.T) {
	registry := NewRegistry()
	serviceA := uuid.New()
	serviceB := uuid.New()

	require.True(t, registry.TryAcquire(serviceA, uuid.New()))
	assert.True(t, registry.TryAcquire(serviceB, uuid.New()), "locks must be per service")
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	registry := NewRegistry()
	serviceID := uuid.New()

	const contenders = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if registry.TryAcquire(serviceID, uuid.New()) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one contender may win the lock")
}
