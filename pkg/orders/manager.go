package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/deployers"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/servicelock"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type OrderRepository interface {
	CreateOrder(order *entities.OrderEntity) error
	GetOrderByID(id uuid.UUID) (*entities.OrderEntity, error)
	GetOrderByCorrelationToken(token uuid.UUID) (*entities.OrderEntity, error)
	GetOrdersByServiceID(serviceID uuid.UUID) ([]*entities.OrderEntity, error)
	MarkInProgress(id uuid.UUID) (bool, error)
	CompleteOrder(
		id uuid.UUID,
		status entities.OrderStatus,
		completedAt time.Time,
		resultProperties datatypes.JSON,
		errorDetail *entities.ErrorDetail,
	) (bool, error)
	GetInProgressOrders() ([]*entities.OrderEntity, error)
}

type ServiceRepository interface {
	CreateService(service *entities.ServiceEntity) error
	GetServiceByID(id uuid.UUID) (*entities.ServiceEntity, error)
	GetAllServices() ([]*entities.ServiceEntity, error)
	UpdateState(id uuid.UUID, state entities.ServiceState, expectedVersion int64) (bool, error)
	UpdateLockConfig(id uuid.UUID, lock entities.LockConfig, expectedVersion int64) (bool, error)
}

type TaskManager interface {
	Start()
	AddTask(ctx context.Context, task entities.Task)
	Stop()
}

// Manager owns the order lifecycle: it is the only component that mutates
// orders and service deployment records. Mutation happens while the service
// lock for the order's service id is held, and every state transition is a
// single compare-and-set against the store.
type Manager struct {
	orders     OrderRepository
	services   ServiceRepository
	locks      *servicelock.Registry
	deployers  *deployers.Registry
	credCache  *credentials.Cache
	credIssuer credentials.Collaborator
	tasks      TaskManager

	now func() time.Time
}

const credentialKindVariables = "variables"

func NewManager(
	orderRepo OrderRepository,
	serviceRepo ServiceRepository,
	locks *servicelock.Registry,
	deployerRegistry *deployers.Registry,
	credCache *credentials.Cache,
	credIssuer credentials.Collaborator,
	tasks TaskManager,
) *Manager {
	manager := &Manager{
		orders:     orderRepo,
		services:   serviceRepo,
		locks:      locks,
		deployers:  deployerRegistry,
		credCache:  credCache,
		credIssuer: credIssuer,
		tasks:      tasks,
		now:        time.Now,
	}
	manager.tasks.Start()
	return manager
}

// CreateOrderInput carries everything needed to open a new order.
type CreateOrderInput struct {
	ServiceID         uuid.UUID // uuid.Nil on a first deployment
	ServiceName       string
	Provider          string
	DeployerKind      entities.DeployerKind
	TaskType          entities.TaskType
	RequestBody       datatypes.JSON
	UserID            string
	OriginalServiceID *uuid.UUID // source service for Recreate / Port
	ParentOrderID     *uuid.UUID // set on orders spawned by another order
}

// CreateOrder validates admissibility, takes the service lock, persists the
// order, and hands dispatch off to the task manager. It returns as soon as
// the handoff happened; provisioning completion is observable through order
// queries only.
func (m *Manager) CreateOrder(ctx context.Context, input CreateOrderInput) (*entities.OrderEntity, error) {
	if !input.TaskType.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", entities.ErrOrderRejected, input.TaskType)
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: missing initiator", entities.ErrAccessDenied)
	}

	service, isNewService, err := m.resolveService(&input)
	if err != nil {
		return nil, err
	}

	serviceID := input.ServiceID
	orderID := uuid.New()

	if !m.locks.TryAcquire(serviceID, orderID) {
		return nil, fmt.Errorf("%w: service %s", entities.ErrServiceBusy, serviceID)
	}
	// From here on any failure before handoff must release the lock.

	if !isNewService {
		// Re-read under the lock: the previous order may have written a new
		// state between our first read and the acquisition.
		service, err = m.services.GetServiceByID(serviceID)
		if err != nil {
			m.locks.Release(serviceID, orderID)
			return nil, err
		}
	}
	if err := checkAdmissible(input.TaskType, service); err != nil {
		m.locks.Release(serviceID, orderID)
		return nil, err
	}

	if isNewService {
		service = &entities.ServiceEntity{
			ID:           serviceID,
			Name:         input.ServiceName,
			Provider:     input.Provider,
			DeployerKind: input.DeployerKind,
			State:        entities.ServiceStateDeploying,
			Config:       input.RequestBody,
		}
		if err := m.services.CreateService(service); err != nil {
			m.locks.Release(serviceID, orderID)
			return nil, fmt.Errorf("create service record: %w", err)
		}
	}

	order := &entities.OrderEntity{
		ID:                orderID,
		ServiceID:         serviceID,
		TaskType:          input.TaskType,
		Status:            entities.OrderStatusCreated,
		DeployerKind:      service.DeployerKind,
		StartedAt:         m.now(),
		RequestBody:       input.RequestBody,
		ParentOrderID:     input.ParentOrderID,
		OriginalServiceID: input.OriginalServiceID,
		UserID:            input.UserID,
		CorrelationToken:  uuid.New(),
		TraceID:           entities.TraceIDFrom(ctx),
	}
	if err := m.orders.CreateOrder(order); err != nil {
		m.locks.Release(serviceID, orderID)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if ok, err := m.orders.MarkInProgress(orderID); err != nil || !ok {
		m.locks.Release(serviceID, orderID)
		if err == nil {
			err = fmt.Errorf("order %s left Created before dispatch", orderID)
		}
		return nil, err
	}
	order.Status = entities.OrderStatusInProgress

	logger.Info("order accepted",
		zap.String("orderId", orderID.String()),
		zap.String("serviceId", serviceID.String()),
		zap.String("taskType", string(input.TaskType)),
		zap.String("traceId", order.TraceID))

	if input.TaskType == entities.TaskTypeLockChange {
		// Lock changes touch no infrastructure; apply and complete inline.
		return order, m.applyLockChange(ctx, order, service)
	}

	if !isNewService {
		if state, ok := transitionalState(input.TaskType); ok {
			m.setServiceState(serviceID, state)
		}
	}

	m.tasks.AddTask(ctx, func(taskCtx context.Context) {
		m.dispatch(taskCtx, orderID)
	})

	return order, nil
}

// resolveService loads (or prepares) the service record the order targets.
func (m *Manager) resolveService(input *CreateOrderInput) (*entities.ServiceEntity, bool, error) {
	switch input.TaskType {
	case entities.TaskTypeRecreate, entities.TaskTypePort:
		if input.OriginalServiceID == nil {
			return nil, false, fmt.Errorf("%w: %s requires the original service id",
				entities.ErrOrderRejected, input.TaskType)
		}
		original, err := m.services.GetServiceByID(*input.OriginalServiceID)
		if err != nil {
			return nil, false, err
		}
		if original.State != entities.ServiceStateDeployed {
			return nil, false, fmt.Errorf("%w: source service is %s, not Deployed",
				entities.ErrOrderRejected, original.State)
		}
		if original.LockConfig.DestroyDisabled {
			return nil, false, fmt.Errorf("%w: source service lock disables destroy",
				entities.ErrOrderRejected)
		}
		input.ServiceID = uuid.New()
		if input.ServiceName == "" {
			input.ServiceName = original.Name
		}
		if input.Provider == "" {
			input.Provider = original.Provider
		}
		if input.DeployerKind == "" {
			input.DeployerKind = original.DeployerKind
		}
		return nil, true, nil

	default:
		if input.ServiceID == uuid.Nil {
			if input.TaskType != entities.TaskTypeDeploy {
				return nil, false, fmt.Errorf("%w: %s requires an existing service",
					entities.ErrOrderRejected, input.TaskType)
			}
			if !input.DeployerKind.Valid() {
				return nil, false, fmt.Errorf("%w: unknown deployer kind %q",
					entities.ErrOrderRejected, input.DeployerKind)
			}
			input.ServiceID = uuid.New()
			return nil, true, nil
		}
		service, err := m.services.GetServiceByID(input.ServiceID)
		if err != nil {
			return nil, false, err
		}
		return service, false, nil
	}
}

// dispatch runs on the task manager. It draws credentials, selects the
// backend, and either finishes the order (synchronous backend or dispatch
// failure) or leaves it in flight awaiting the webhook.
func (m *Manager) dispatch(ctx context.Context, orderID uuid.UUID) {
	order, err := m.orders.GetOrderByID(orderID)
	if err != nil {
		logger.Error("dispatch: order vanished",
			zap.String("orderId", orderID.String()), zap.Error(err))
		return
	}
	service, err := m.services.GetServiceByID(order.ServiceID)
	if err != nil {
		m.failOrder(ctx, order, &entities.ErrorDetail{
			Code:    entities.ErrorCodeInvalidRequest,
			Message: fmt.Sprintf("service record unavailable: %v", err),
		})
		return
	}

	key := credentials.Key{
		Provider:  service.Provider,
		Principal: order.UserID,
		Kind:      credentialKindVariables,
	}
	credential, err := m.credCache.GetOrFetch(ctx, m.credIssuer, key)
	if err != nil {
		m.failOrder(ctx, order, &entities.ErrorDetail{
			Code:      entities.ErrorCodeCredentialFetch,
			Message:   err.Error(),
			Retryable: true,
		})
		return
	}

	deployer, err := m.deployers.Get(order.DeployerKind)
	if err != nil {
		m.failOrder(ctx, order, &entities.ErrorDetail{
			Code:    entities.ErrorCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	result, err := deployer.Start(ctx, order, credential)
	if err != nil {
		var detail *entities.ErrorDetail
		if !errors.As(err, &detail) {
			detail = &entities.ErrorDetail{
				Code:    entities.ErrorCodeInvalidRequest,
				Message: err.Error(),
			}
		}
		m.failOrder(ctx, order, detail)
		return
	}

	if result.Completed {
		if err := m.CompleteOrder(ctx, orderID, *result.Outcome); err != nil {
			logger.Error("completing synchronous order failed",
				zap.String("orderId", orderID.String()),
				zap.String("traceId", order.TraceID),
				zap.Error(err))
		}
		return
	}

	logger.Info("order pending remote completion",
		zap.String("orderId", orderID.String()),
		zap.String("correlationToken", order.CorrelationToken.String()),
		zap.String("traceId", order.TraceID))
}

func (m *Manager) failOrder(ctx context.Context, order *entities.OrderEntity, detail *entities.ErrorDetail) {
	if err := m.CompleteOrder(ctx, order.ID, entities.Outcome{Success: false, Error: detail}); err != nil {
		logger.Error("failing order did not stick",
			zap.String("orderId", order.ID.String()),
			zap.String("traceId", order.TraceID),
			zap.Error(err))
	}
}

// CompleteOrder performs the order's single terminal transition. It is
// idempotent for repeated deliveries of the same outcome; a differing
// outcome for an already-terminal order is a consistency fault.
func (m *Manager) CompleteOrder(ctx context.Context, orderID uuid.UUID, outcome entities.Outcome) error {
	order, err := m.orders.GetOrderByID(orderID)
	if err != nil {
		return err
	}

	if order.Status.Terminal() {
		if outcome.SameAs(order.Status) {
			logger.Debug("duplicate completion ignored",
				zap.String("orderId", orderID.String()),
				zap.String("traceId", order.TraceID))
			return nil
		}
		return m.conflictingCompletion(order, outcome)
	}

	status := entities.OrderStatusFailed
	if outcome.Success {
		status = entities.OrderStatusSuccessful
	}

	won, err := m.orders.CompleteOrder(orderID, status, m.now(), outcome.ResultProperties, outcome.Error)
	if err != nil {
		return err
	}
	if !won {
		// Lost the race against a concurrent completion; re-read to decide
		// whether the winner agreed with us.
		current, err := m.orders.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if !current.Status.Terminal() {
			return fmt.Errorf("order %s: terminal write lost but order still %s", orderID, current.Status)
		}
		if outcome.SameAs(current.Status) {
			return nil
		}
		return m.conflictingCompletion(current, outcome)
	}

	if order.TaskType != entities.TaskTypeLockChange {
		if state, ok := terminalState(order.TaskType, outcome.Success); ok {
			m.setServiceState(order.ServiceID, state)
		}
	}

	m.locks.Release(order.ServiceID, order.ID)

	logger.Info("order completed",
		zap.String("orderId", orderID.String()),
		zap.String("serviceId", order.ServiceID.String()),
		zap.String("status", string(status)),
		zap.String("traceId", order.TraceID))

	if outcome.Success && order.OriginalServiceID != nil &&
		(order.TaskType == entities.TaskTypeRecreate || order.TaskType == entities.TaskTypePort) {
		m.spawnFollowUpDestroy(ctx, order)
	}

	return nil
}

func (m *Manager) conflictingCompletion(order *entities.OrderEntity, outcome entities.Outcome) error {
	logger.Error("conflicting completion for terminal order",
		zap.String("orderId", order.ID.String()),
		zap.String("recordedStatus", string(order.Status)),
		zap.Bool("attemptedSuccess", outcome.Success),
		zap.String("traceId", order.TraceID))
	return fmt.Errorf("order %s is already %s: %w", order.ID, order.Status, entities.ErrConflictingCompletion)
}

// HandleCallback correlates an asynchronous completion back to its order.
// The persisted correlation token is the source of truth, so callbacks
// survive process restarts. Safe to deliver more than once.
func (m *Manager) HandleCallback(ctx context.Context, token uuid.UUID, outcome entities.Outcome) (uuid.UUID, error) {
	order, err := m.orders.GetOrderByCorrelationToken(token)
	if errors.Is(err, entities.ErrOrderNotFound) {
		logger.Error("webhook with unknown correlation token",
			zap.String("correlationToken", token.String()),
			zap.String("traceId", entities.TraceIDFrom(ctx)))
		return uuid.Nil, fmt.Errorf("token %s: %w", token, entities.ErrUnknownCorrelation)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return order.ID, m.CompleteOrder(ctx, order.ID, outcome)
}

// applyLockChange applies the new lock flags carried in the order body and
// completes the order synchronously.
func (m *Manager) applyLockChange(ctx context.Context, order *entities.OrderEntity, service *entities.ServiceEntity) error {
	var lock entities.LockConfig
	if err := json.Unmarshal(order.RequestBody, &lock); err != nil {
		return m.CompleteOrder(ctx, order.ID, entities.Outcome{
			Success: false,
			Error: &entities.ErrorDetail{
				Code:    entities.ErrorCodeInvalidRequest,
				Message: fmt.Sprintf("invalid lock config: %v", err),
			},
		})
	}

	for attempt := 0; attempt < 3; attempt++ {
		ok, err := m.services.UpdateLockConfig(service.ID, lock, service.Version)
		if err != nil {
			return m.CompleteOrder(ctx, order.ID, entities.Outcome{
				Success: false,
				Error: &entities.ErrorDetail{
					Code:    entities.ErrorCodeExecutionFailed,
					Message: err.Error(),
				},
			})
		}
		if ok {
			return m.CompleteOrder(ctx, order.ID, entities.Outcome{
				Success:          true,
				ResultProperties: order.RequestBody,
			})
		}
		service, err = m.services.GetServiceByID(service.ID)
		if err != nil {
			return err
		}
	}
	return m.CompleteOrder(ctx, order.ID, entities.Outcome{
		Success: false,
		Error: &entities.ErrorDetail{
			Code:    entities.ErrorCodeExecutionFailed,
			Message: "lock config update kept losing version races",
		},
	})
}

// spawnFollowUpDestroy issues the second step of a Recreate/Port: destroy
// the source service, linked to the parent order.
func (m *Manager) spawnFollowUpDestroy(ctx context.Context, parent *entities.OrderEntity) {
	child, err := m.CreateOrder(ctx, CreateOrderInput{
		ServiceID:     *parent.OriginalServiceID,
		TaskType:      entities.TaskTypeDestroy,
		UserID:        parent.UserID,
		ParentOrderID: &parent.ID,
	})
	if err != nil {
		logger.Error("follow-up destroy for source service was not accepted",
			zap.String("parentOrderId", parent.ID.String()),
			zap.String("originalServiceId", parent.OriginalServiceID.String()),
			zap.String("traceId", parent.TraceID),
			zap.Error(err))
		return
	}
	logger.Info("follow-up destroy created",
		zap.String("parentOrderId", parent.ID.String()),
		zap.String("childOrderId", child.ID.String()),
		zap.String("traceId", parent.TraceID))
}

// setServiceState writes the service's deployment state with a small
// optimistic-concurrency retry. The service lock is held by the calling
// order, so contention here signals outside interference and is logged.
func (m *Manager) setServiceState(serviceID uuid.UUID, state entities.ServiceState) {
	for attempt := 0; attempt < 3; attempt++ {
		service, err := m.services.GetServiceByID(serviceID)
		if err != nil {
			logger.Error("service state update: record unavailable",
				zap.String("serviceId", serviceID.String()), zap.Error(err))
			return
		}
		ok, err := m.services.UpdateState(serviceID, state, service.Version)
		if err != nil {
			logger.Error("service state update failed",
				zap.String("serviceId", serviceID.String()), zap.Error(err))
			return
		}
		if ok {
			return
		}
	}
	logger.Error("service state update kept losing version races",
		zap.String("serviceId", serviceID.String()),
		zap.String("state", string(state)))
}

// GetOrder returns the stored order record.
func (m *Manager) GetOrder(orderID uuid.UUID) (*entities.OrderEntity, error) {
	return m.orders.GetOrderByID(orderID)
}

// GetServiceOrders lists all orders for a service, newest first.
func (m *Manager) GetServiceOrders(serviceID uuid.UUID) ([]*entities.OrderEntity, error) {
	if _, err := m.services.GetServiceByID(serviceID); err != nil {
		return nil, err
	}
	return m.orders.GetOrdersByServiceID(serviceID)
}

// GetService returns the service deployment record.
func (m *Manager) GetService(serviceID uuid.UUID) (*entities.ServiceEntity, error) {
	return m.services.GetServiceByID(serviceID)
}

// GetAllServices lists every service deployment record.
func (m *Manager) GetAllServices() ([]*entities.ServiceEntity, error) {
	return m.services.GetAllServices()
}
