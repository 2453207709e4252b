package servicelock

import (
	"sync"

	"github.com/stackforge/orderhub-backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the per-service mutual-exclusion gate. At most one live order
// may hold the lock for a service at any instant. Locks are in-memory only
// and never span process restarts; startup reconciliation handles orders
// left in flight by a previous process.
type Registry struct {
	mu      sync.Mutex
	holders map[uuid.UUID]uuid.UUID // serviceID -> holding orderID
}

func NewRegistry() *Registry {
	return &Registry{
		holders: make(map[uuid.UUID]uuid.UUID),
	}
}

// TryAcquire takes the lock for serviceID on behalf of orderID. A false
// return means another order holds the lock; callers treat that as "service
// busy", not as a fault. Re-acquiring by the current holder succeeds.
func (r *Registry) TryAcquire(serviceID, orderID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, held := r.holders[serviceID]; held {
		return holder == orderID
	}
	r.holders[serviceID] = orderID
	return true
}

// Release drops the lock for serviceID if orderID is the current holder.
// A release by a non-holder is an orchestration bug; it is logged and
// ignored so one order can never drop another order's lock.
func (r *Registry) Release(serviceID, orderID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holder, held := r.holders[serviceID]
	if !held {
		return
	}
	if holder != orderID {
		logger.Error("lock release by non-holder",
			zap.String("serviceId", serviceID.String()),
			zap.String("holderOrderId", holder.String()),
			zap.String("releasingOrderId", orderID.String()))
		return
	}
	delete(r.holders, serviceID)
}

// Holder returns the order currently holding the lock for serviceID.
func (r *Registry) Holder(serviceID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holder, held := r.holders[serviceID]
	return holder, held
}
