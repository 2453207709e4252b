package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// Watchdog force-fails orders stuck in flight past maxDuration. Apart from
// a genuine completion or callback it is the only source of a transition
// out of InProgress; the compare-and-set in the store guarantees a late
// webhook and a timeout cannot both win.
type Watchdog struct {
	manager     *Manager
	repo        OrderRepository
	maxDuration time.Duration
	interval    time.Duration
}

func NewWatchdog(manager *Manager, repo OrderRepository, maxDuration, interval time.Duration) *Watchdog {
	return &Watchdog{
		manager:     manager,
		repo:        repo,
		maxDuration: maxDuration,
		interval:    interval,
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Scan(ctx)
			}
		}
	}()
}

// Scan fails every in-flight order older than maxDuration.
func (w *Watchdog) Scan(ctx context.Context) {
	inFlight, err := w.repo.GetInProgressOrders()
	if err != nil {
		logger.Error("watchdog scan failed", zap.Error(err))
		return
	}

	deadline := w.manager.now().Add(-w.maxDuration)
	for _, order := range inFlight {
		if order.StartedAt.After(deadline) {
			continue
		}
		logger.Warn("order exceeded maximum duration, forcing failure",
			zap.String("orderId", order.ID.String()),
			zap.String("serviceId", order.ServiceID.String()),
			zap.Duration("maxDuration", w.maxDuration),
			zap.String("traceId", order.TraceID))

		err := w.manager.CompleteOrder(ctx, order.ID, entities.Outcome{
			Success: false,
			Error: &entities.ErrorDetail{
				Code:      entities.ErrorCodeTimeout,
				Message:   fmt.Sprintf("order did not complete within %s", w.maxDuration),
				Retryable: true,
			},
		})
		if err != nil {
			logger.Error("watchdog could not fail order",
				zap.String("orderId", order.ID.String()),
				zap.Error(err))
		}
	}
}
