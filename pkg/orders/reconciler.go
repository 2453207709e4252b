package orders

import (
	"context"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/servicelock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler handles orders a previous process left in flight. Service
// locks do not survive restarts, so every stored InProgress order with no
// live lock holder is suspect: the reconciler re-takes the lock on the old
// order's behalf (keeping new orders for that service out) and, if nothing
// completes the order within the grace period, fails it as interrupted.
type Reconciler struct {
	manager *Manager
	repo    OrderRepository
	locks   *servicelock.Registry
	tasks   TaskManager
	grace   time.Duration
}

func NewReconciler(manager *Manager, repo OrderRepository, locks *servicelock.Registry, tasks TaskManager, grace time.Duration) *Reconciler {
	return &Reconciler{
		manager: manager,
		repo:    repo,
		locks:   locks,
		tasks:   tasks,
		grace:   grace,
	}
}

// Run scans once, at startup, before the API starts admitting orders.
func (r *Reconciler) Run(ctx context.Context) error {
	stale, err := r.repo.GetInProgressOrders()
	if err != nil {
		return err
	}

	for _, order := range stale {
		if _, held := r.locks.Holder(order.ServiceID); held {
			// An order admitted by this process already owns the service.
			continue
		}
		if !r.locks.TryAcquire(order.ServiceID, order.ID) {
			continue
		}
		logger.Warn("found order in flight from a previous process",
			zap.String("orderId", order.ID.String()),
			zap.String("serviceId", order.ServiceID.String()),
			zap.Duration("grace", r.grace),
			zap.String("traceId", order.TraceID))

		orderID := order.ID
		r.tasks.AddTask(ctx, func(taskCtx context.Context) {
			r.expireAfterGrace(taskCtx, orderID)
		})
	}
	return nil
}

// expireAfterGrace waits out the grace period, then fails the order if a
// late webhook has not resolved it in the meantime. CompleteOrder releases
// the re-taken lock either way.
func (r *Reconciler) expireAfterGrace(ctx context.Context, orderID uuid.UUID) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.grace):
	}

	order, err := r.manager.GetOrder(orderID)
	if err != nil {
		logger.Error("reconciler: order vanished", zap.String("orderId", orderID.String()), zap.Error(err))
		return
	}
	if order.Status.Terminal() {
		return
	}

	err = r.manager.CompleteOrder(ctx, order.ID, entities.Outcome{
		Success: false,
		Error: &entities.ErrorDetail{
			Code:      entities.ErrorCodeInterrupted,
			Message:   "order was interrupted by a process restart",
			Retryable: true,
		},
	})
	if err != nil {
		logger.Error("reconciler could not fail interrupted order",
			zap.String("orderId", order.ID.String()),
			zap.Error(err))
	}
}
