package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderEntity is the persisted record of one request to change a deployed
// service's infrastructure state.
type OrderEntity struct {
	ID                uuid.UUID
	ServiceID         uuid.UUID
	TaskType          TaskType
	Status            OrderStatus
	DeployerKind      DeployerKind
	StartedAt         time.Time
	CompletedAt       *time.Time
	RequestBody       datatypes.JSON
	ResultProperties  datatypes.JSON
	ErrorDetail       *ErrorDetail
	ParentOrderID     *uuid.UUID
	OriginalServiceID *uuid.UUID
	UserID            string
	CorrelationToken  uuid.UUID
	TraceID           string
}

type OrderStatusWithID struct {
	OrderID uuid.UUID
	Status  OrderStatus
}

// Outcome is a terminal result reported for an order, either by a
// synchronous deployer, a webhook callback, or the watchdog.
type Outcome struct {
	Success          bool
	ResultProperties datatypes.JSON
	Error            *ErrorDetail
}

// SameAs reports whether two outcomes agree on the terminal status. Result
// payloads are not compared; a repeated delivery carries the same payload or
// none at all, and the first durable write wins either way.
func (o Outcome) SameAs(status OrderStatus) bool {
	if o.Success {
		return status == OrderStatusSuccessful
	}
	return status == OrderStatusFailed
}
