package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(provider string) Key {
	return Key{Provider: provider, Principal: "svc-account", Kind: "variables"}
}

func testCredential(provider string) Credential {
	return Credential{
		Key:        testKey(provider),
		Properties: map[string]string{"ACCESS_KEY": "abc", "SECRET_KEY": "xyz"},
	}
}

// fakeClock lets tests move the cache's clock without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(maxEntries int, onRemoval RemovalFunc) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cache := NewCache(maxEntries, onRemoval)
	cache.now = clock.Now
	return cache, clock
}

func TestPutGetBeforeTTL(t *testing.T) {
	cache, clock := newTestCache(0, nil)
	key := testKey("aws")

	require.NoError(t, cache.Put(key, testCredential("aws"), 30*time.Second))

	clock.Advance(29 * time.Second)
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "abc", got.Properties["ACCESS_KEY"])
}

func TestEntryExpiresAfterTTLRegardlessOfReads(t *testing.T) {
	cache, clock := newTestCache(0, nil)
	key := testKey("aws")

	require.NoError(t, cache.Put(key, testCredential("aws"), 10*time.Second))

	// Reads must not extend the entry's lifetime.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		_, ok := cache.Get(key)
		require.True(t, ok)
	}

	clock.Advance(6 * time.Second)
	_, ok := cache.Get(key)
	assert.False(t, ok, "entry must be gone after its TTL even if recently read")
}

func TestPutRejectsNonPositiveTTL(t *testing.T) {
	cache, _ := newTestCache(0, nil)
	assert.Error(t, cache.Put(testKey("aws"), testCredential("aws"), 0))
	assert.Error(t, cache.Put(testKey("aws"), testCredential("aws"), -time.Second))
}

func TestInvalidateNotifiesRemoval(t *testing.T) {
	removals := make(chan RemovalReason, 1)
	cache, _ := newTestCache(0, func(key Key, reason RemovalReason) {
		removals <- reason
	})
	key := testKey("azure")

	require.NoError(t, cache.Put(key, testCredential("azure"), time.Minute))
	cache.Invalidate(key)

	_, ok := cache.Get(key)
	assert.False(t, ok)

	select {
	case reason := <-removals:
		assert.Equal(t, RemovalReasonInvalidated, reason)
	case <-time.After(time.Second):
		t.Fatal("removal notification never arrived")
	}
}

func TestBoundedCacheEvictsSoonestToExpire(t *testing.T) {
	removals := make(chan Key, 1)
	cache, _ := newTestCache(2, func(key Key, reason RemovalReason) {
		if reason == RemovalReasonEvicted {
			removals <- key
		}
	})

	require.NoError(t, cache.Put(testKey("aws"), testCredential("aws"), 10*time.Second))
	require.NoError(t, cache.Put(testKey("azure"), testCredential("azure"), time.Hour))
	require.NoError(t, cache.Put(testKey("gcp"), testCredential("gcp"), time.Hour))

	select {
	case victim := <-removals:
		assert.Equal(t, "aws", victim.Provider, "the entry closest to expiry is evicted first")
	case <-time.After(time.Second):
		t.Fatal("eviction notification never arrived")
	}

	_, ok := cache.Get(testKey("azure"))
	assert.True(t, ok)
	_, ok = cache.Get(testKey("gcp"))
	assert.True(t, ok)
}

type scriptedIssuer struct {
	mu      sync.Mutex
	fetches int
	err     error
	ttl     time.Duration
}

func (s *scriptedIssuer) Fetch(_ context.Context, key Key) (Credential, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return Credential{}, 0, s.err
	}
	return testCredential(key.Provider), s.ttl, nil
}

func TestGetOrFetchPopulatesOnMiss(t *testing.T) {
	cache, _ := newTestCache(0, nil)
	issuer := &scriptedIssuer{ttl: time.Minute}
	key := testKey("aws")

	_, err := cache.GetOrFetch(context.Background(), issuer, key)
	require.NoError(t, err)
	_, err = cache.GetOrFetch(context.Background(), issuer, key)
	require.NoError(t, err)

	assert.Equal(t, 1, issuer.fetches, "second call must be served from cache")
}

func TestGetOrFetchPropagatesIssuerError(t *testing.T) {
	cache, _ := newTestCache(0, nil)
	issuer := &scriptedIssuer{err: errors.New("identity provider down")}

	_, err := cache.GetOrFetch(context.Background(), issuer, testKey("aws"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "identity provider down")
}

func TestBackgroundSweepRemovesExpired(t *testing.T) {
	removals := make(chan RemovalReason, 4)
	cache, clock := newTestCache(0, func(key Key, reason RemovalReason) {
		removals <- reason
	})
	defer cache.Stop()

	require.NoError(t, cache.Put(testKey("aws"), testCredential("aws"), 5*time.Second))
	clock.Advance(10 * time.Second)

	cache.sweep()

	select {
	case reason := <-removals:
		assert.Equal(t, RemovalReasonExpired, reason)
	case <-time.After(time.Second):
		t.Fatal("sweep never reported the expired entry")
	}
}
