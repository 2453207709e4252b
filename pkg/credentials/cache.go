package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// RemovalReason explains why an entry left the cache.
type RemovalReason string

const (
	RemovalReasonExpired     RemovalReason = "Expired"
	RemovalReasonInvalidated RemovalReason = "Invalidated"
	RemovalReasonEvicted     RemovalReason = "Evicted"
)

// RemovalFunc observes entries leaving the cache, for audit logging. It is
// invoked on its own goroutine and must never block a calling order.
type RemovalFunc func(key Key, reason RemovalReason)

type entry struct {
	credential Credential
	expiresAt  time.Time
}

// Cache is a bounded credential cache with per-entry expiry. The expiry
// clock for each entry is fixed at insertion from the TTL the issuer granted
// the credential; reads never extend it. Expired entries are dropped lazily
// on access and by a background sweep.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]entry
	maxEntries int
	onRemoval  RemovalFunc
	now        func() time.Time

	stopSweep chan struct{}
	sweepOnce sync.Once
}

const defaultMaxEntries = 1024

func NewCache(maxEntries int, onRemoval RemovalFunc) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		entries:    make(map[Key]entry),
		maxEntries: maxEntries,
		onRemoval:  onRemoval,
		now:        time.Now,
		stopSweep:  make(chan struct{}),
	}
}

// StartSweep launches the background reaper for expired entries.
func (c *Cache) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopSweep:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) Stop() {
	c.sweepOnce.Do(func() { close(c.stopSweep) })
}

// Get returns the cached credential for key, or false on miss. An entry
// whose TTL has elapsed counts as a miss and is removed.
func (c *Cache) Get(key Key) (Credential, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.notify(key, RemovalReasonExpired)
		return Credential{}, false
	}
	c.mu.Unlock()
	if !ok {
		return Credential{}, false
	}
	return e.credential, true
}

// Put stores credential under key for ttl. A non-positive ttl is refused;
// such a credential is already useless to an in-flight order.
func (c *Cache) Put(key Key, credential Credential, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("credential cache: non-positive ttl %s for %s/%s", ttl, key.Provider, key.Kind)
	}

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		evicted := c.evictSoonestLocked()
		c.mu.Unlock()
		c.notify(evicted, RemovalReasonEvicted)
		c.mu.Lock()
	}
	c.entries[key] = entry{credential: credential, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the entry for key, if present.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		c.notify(key, RemovalReasonInvalidated)
	}
}

// GetOrFetch returns the cached credential for key, fetching from the
// issuer on miss and caching the result with the issuer-granted TTL.
func (c *Cache) GetOrFetch(ctx context.Context, issuer Collaborator, key Key) (Credential, error) {
	if credential, ok := c.Get(key); ok {
		return credential, nil
	}

	credential, ttl, err := issuer.Fetch(ctx, key)
	if err != nil {
		return Credential{}, fmt.Errorf("credential fetch for %s/%s/%s: %w",
			key.Provider, key.Principal, key.Kind, err)
	}
	if err := c.Put(key, credential, ttl); err != nil {
		// The credential itself is still usable for this order.
		logger.Warn("credential not cached",
			zap.String("provider", key.Provider),
			zap.String("traceId", entities.TraceIDFrom(ctx)),
			zap.Error(err))
	}
	return credential, nil
}

// evictSoonestLocked removes the entry closest to expiry. Caller holds mu.
func (c *Cache) evictSoonestLocked() Key {
	var victim Key
	var soonest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(soonest) {
			victim, soonest, first = k, e.expiresAt, false
		}
	}
	delete(c.entries, victim)
	return victim
}

func (c *Cache) sweep() {
	now := c.now()
	var expired []Key
	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			expired = append(expired, k)
		}
	}
	c.mu.Unlock()
	for _, k := range expired {
		c.notify(k, RemovalReasonExpired)
	}
}

func (c *Cache) notify(key Key, reason RemovalReason) {
	if c.onRemoval == nil {
		return
	}
	go c.onRemoval(key, reason)
}
