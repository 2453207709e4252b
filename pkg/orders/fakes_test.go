package orders

import (
	"context"
	"sync"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/deployers"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// memOrderRepo is an in-memory OrderRepository with the same
// compare-and-set semantics as the postgres implementation.
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*entities.OrderEntity
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*entities.OrderEntity)}
}

func cloneOrder(o *entities.OrderEntity) *entities.OrderEntity {
	cp := *o
	if o.ErrorDetail != nil {
		d := *o.ErrorDetail
		cp.ErrorDetail = &d
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func (r *memOrderRepo) CreateOrder(order *entities.OrderEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memOrderRepo) GetOrderByID(id uuid.UUID) (*entities.OrderEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, entities.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *memOrderRepo) GetOrderByCorrelationToken(token uuid.UUID) (*entities.OrderEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.CorrelationToken == token {
			return cloneOrder(order), nil
		}
	}
	return nil, entities.ErrOrderNotFound
}

func (r *memOrderRepo) GetOrdersByServiceID(serviceID uuid.UUID) ([]*entities.OrderEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.OrderEntity
	for _, order := range r.orders {
		if order.ServiceID == serviceID {
			out = append(out, cloneOrder(order))
		}
	}
	return out, nil
}

func (r *memOrderRepo) MarkInProgress(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != entities.OrderStatusCreated {
		return false, nil
	}
	order.Status = entities.OrderStatusInProgress
	return true, nil
}

func (r *memOrderRepo) CompleteOrder(
	id uuid.UUID,
	status entities.OrderStatus,
	completedAt time.Time,
	resultProperties datatypes.JSON,
	errorDetail *entities.ErrorDetail,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status != entities.OrderStatusInProgress {
		return false, nil
	}
	order.Status = status
	order.CompletedAt = &completedAt
	if resultProperties != nil {
		order.ResultProperties = resultProperties
	}
	if errorDetail != nil {
		d := *errorDetail
		order.ErrorDetail = &d
	}
	return true, nil
}

func (r *memOrderRepo) GetInProgressOrders() ([]*entities.OrderEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.OrderEntity
	for _, order := range r.orders {
		if !order.Status.Terminal() {
			out = append(out, cloneOrder(order))
		}
	}
	return out, nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// memServiceRepo is an in-memory ServiceRepository with optimistic
// versioning.
type memServiceRepo struct {
	mu       sync.Mutex
	services map[uuid.UUID]*entities.ServiceEntity
}

func newMemServiceRepo() *memServiceRepo {
	return &memServiceRepo{services: make(map[uuid.UUID]*entities.ServiceEntity)}
}

func cloneService(s *entities.ServiceEntity) *entities.ServiceEntity {
	cp := *s
	return &cp
}

func (r *memServiceRepo) CreateService(service *entities.ServiceEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[service.ID] = cloneService(service)
	return nil
}

func (r *memServiceRepo) GetServiceByID(id uuid.UUID) (*entities.ServiceEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.services[id]
	if !ok {
		return nil, entities.ErrServiceNotFound
	}
	return cloneService(service), nil
}

func (r *memServiceRepo) GetAllServices() ([]*entities.ServiceEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ServiceEntity, 0, len(r.services))
	for _, service := range r.services {
		out = append(out, cloneService(service))
	}
	return out, nil
}

func (r *memServiceRepo) UpdateState(id uuid.UUID, state entities.ServiceState, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.services[id]
	if !ok || service.Version != expectedVersion {
		return false, nil
	}
	service.State = state
	service.Version++
	return true, nil
}

func (r *memServiceRepo) UpdateLockConfig(id uuid.UUID, lock entities.LockConfig, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.services[id]
	if !ok || service.Version != expectedVersion {
		return false, nil
	}
	service.LockConfig = lock
	service.Version++
	return true, nil
}

// inlineTasks runs every task on the submitting goroutine, which makes
// dispatch synchronous and deterministic in tests.
type inlineTasks struct{}

func (inlineTasks) Start() {}
func (inlineTasks) Stop()  {}
func (inlineTasks) AddTask(ctx context.Context, task entities.Task) {
	task(ctx)
}

// droppingTasks swallows tasks, leaving orders parked in InProgress.
type droppingTasks struct{}

func (droppingTasks) Start()                                  {}
func (droppingTasks) Stop()                                   {}
func (droppingTasks) AddTask(context.Context, entities.Task) {}

// staticIssuer hands out one fixed credential.
type staticIssuer struct {
	err error
}

func (s staticIssuer) Fetch(_ context.Context, key credentials.Key) (credentials.Credential, time.Duration, error) {
	if s.err != nil {
		return credentials.Credential{}, 0, s.err
	}
	return credentials.Credential{
		Key:        key,
		Properties: map[string]string{"TOKEN": "secret"},
	}, time.Minute, nil
}

// scriptedDeployer returns a canned dispatch result.
type scriptedDeployer struct {
	mu      sync.Mutex
	result  deployers.DispatchResult
	err     error
	started int
}

func (d *scriptedDeployer) Start(_ context.Context, _ *entities.OrderEntity, _ credentials.Credential) (deployers.DispatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started++
	return d.result, d.err
}

func (d *scriptedDeployer) startCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func successDeployer(result string) *scriptedDeployer {
	return &scriptedDeployer{result: deployers.DispatchResult{
		Completed: true,
		Outcome: &entities.Outcome{
			Success:          true,
			ResultProperties: datatypes.JSON(result),
		},
	}}
}

func failureDeployer(detail *entities.ErrorDetail) *scriptedDeployer {
	return &scriptedDeployer{result: deployers.DispatchResult{
		Completed: true,
		Outcome:   &entities.Outcome{Success: false, Error: detail},
	}}
}

func pendingDeployer() *scriptedDeployer {
	return &scriptedDeployer{result: deployers.DispatchResult{Completed: false}}
}
