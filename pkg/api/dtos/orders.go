package dtos

import (
	"encoding/json"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/google/uuid"
)

type CreateOrderRequest struct {
	ServiceID         string          `json:"serviceId,omitempty"`
	ServiceName       string          `json:"serviceName,omitempty"`
	Provider          string          `json:"provider,omitempty"`
	DeployerKind      string          `json:"deployerKind,omitempty"`
	TaskType          string          `json:"taskType" binding:"required"`
	RequestBody       json.RawMessage `json:"requestBody,omitempty"`
	OriginalServiceID string          `json:"originalServiceId,omitempty"`
	UserID            string          `json:"userId" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID   uuid.UUID `json:"orderId"`
	ServiceID uuid.UUID `json:"serviceId"`
}

type OrderResponse struct {
	OrderID           uuid.UUID             `json:"orderId"`
	ServiceID         uuid.UUID             `json:"serviceId"`
	TaskType          entities.TaskType     `json:"taskType"`
	Status            entities.OrderStatus  `json:"status"`
	StartedAt         time.Time             `json:"startedTime"`
	CompletedAt       *time.Time            `json:"completedTime,omitempty"`
	RequestBody       json.RawMessage       `json:"requestBody,omitempty"`
	ResultProperties  json.RawMessage       `json:"resultProperties,omitempty"`
	ErrorDetail       *entities.ErrorDetail `json:"errorDetail,omitempty"`
	ParentOrderID     *uuid.UUID            `json:"parentOrderId,omitempty"`
	OriginalServiceID *uuid.UUID            `json:"originalServiceId,omitempty"`
	UserID            string                `json:"userId"`
}

func OrderResponseFromEntity(order *entities.OrderEntity) OrderResponse {
	return OrderResponse{
		OrderID:           order.ID,
		ServiceID:         order.ServiceID,
		TaskType:          order.TaskType,
		Status:            order.Status,
		StartedAt:         order.StartedAt,
		CompletedAt:       order.CompletedAt,
		RequestBody:       json.RawMessage(order.RequestBody),
		ResultProperties:  json.RawMessage(order.ResultProperties),
		ErrorDetail:       order.ErrorDetail,
		ParentOrderID:     order.ParentOrderID,
		OriginalServiceID: order.OriginalServiceID,
		UserID:            order.UserID,
	}
}

type WebhookRequest struct {
	Status           string                `json:"status" binding:"required"` // success | failure
	ResultProperties json.RawMessage       `json:"resultProperties,omitempty"`
	ErrorDetail      *entities.ErrorDetail `json:"errorDetail,omitempty"`
}

type ServiceResponse struct {
	ServiceID    uuid.UUID             `json:"serviceId"`
	Name         string                `json:"name"`
	Provider     string                `json:"provider"`
	DeployerKind entities.DeployerKind `json:"deployerKind"`
	State        entities.ServiceState `json:"state"`
	LockConfig   entities.LockConfig   `json:"lockConfig"`
}

func ServiceResponseFromEntity(service *entities.ServiceEntity) ServiceResponse {
	return ServiceResponse{
		ServiceID:    service.ID,
		Name:         service.Name,
		Provider:     service.Provider,
		DeployerKind: service.DeployerKind,
		State:        service.State,
		LockConfig:   service.LockConfig,
	}
}

type UpdateLockRequest struct {
	DestroyDisabled bool   `json:"destroyDisabled"`
	ModifyDisabled  bool   `json:"modifyDisabled"`
	UserID          string `json:"userId" binding:"required"`
}
