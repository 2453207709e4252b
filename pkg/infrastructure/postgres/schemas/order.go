package schemas

import (
	"encoding/json"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Order struct {
	ID                uuid.UUID             `gorm:"type:uuid;primaryKey;column:id"`
	ServiceID         uuid.UUID             `gorm:"type:uuid;not null;index;column:service_id"`
	TaskType          entities.TaskType     `gorm:"column:task_type;not null"`
	Status            entities.OrderStatus  `gorm:"column:status;not null;index"`
	DeployerKind      entities.DeployerKind `gorm:"column:deployer_kind;not null"`
	StartedAt         time.Time             `gorm:"column:started_at;not null"`
	CompletedAt       *time.Time            `gorm:"column:completed_at"`
	RequestBody       datatypes.JSON        `gorm:"type:jsonb;column:request_body"`
	ResultProperties  datatypes.JSON        `gorm:"type:jsonb;column:result_properties"`
	ErrorDetail       datatypes.JSON        `gorm:"type:jsonb;column:error_detail"`
	ParentOrderID     *uuid.UUID            `gorm:"type:uuid;column:parent_order_id"`
	OriginalServiceID *uuid.UUID            `gorm:"type:uuid;column:original_service_id"`
	UserID            string                `gorm:"column:user_id;not null"`
	CorrelationToken  uuid.UUID             `gorm:"type:uuid;uniqueIndex;not null;column:correlation_token"`
	TraceID           string                `gorm:"column:trace_id"`
	CreatedAt         time.Time             `gorm:"autoCreateTime;column:created_at"`
	UpdatedAt         time.Time             `gorm:"autoUpdateTime;column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) ToEntity() (*entities.OrderEntity, error) {
	var detail *entities.ErrorDetail
	if len(o.ErrorDetail) > 0 {
		detail = &entities.ErrorDetail{}
		if err := json.Unmarshal(o.ErrorDetail, detail); err != nil {
			return nil, err
		}
	}
	return &entities.OrderEntity{
		ID:                o.ID,
		ServiceID:         o.ServiceID,
		TaskType:          o.TaskType,
		Status:            o.Status,
		DeployerKind:      o.DeployerKind,
		StartedAt:         o.StartedAt,
		CompletedAt:       o.CompletedAt,
		RequestBody:       o.RequestBody,
		ResultProperties:  o.ResultProperties,
		ErrorDetail:       detail,
		ParentOrderID:     o.ParentOrderID,
		OriginalServiceID: o.OriginalServiceID,
		UserID:            o.UserID,
		CorrelationToken:  o.CorrelationToken,
		TraceID:           o.TraceID,
	}, nil
}

func OrderFromEntity(order *entities.OrderEntity) (*Order, error) {
	var detail datatypes.JSON
	if order.ErrorDetail != nil {
		raw, err := json.Marshal(order.ErrorDetail)
		if err != nil {
			return nil, err
		}
		detail = datatypes.JSON(raw)
	}
	return &Order{
		ID:                order.ID,
		ServiceID:         order.ServiceID,
		TaskType:          order.TaskType,
		Status:            order.Status,
		DeployerKind:      order.DeployerKind,
		StartedAt:         order.StartedAt,
		CompletedAt:       order.CompletedAt,
		RequestBody:       order.RequestBody,
		ResultProperties:  order.ResultProperties,
		ErrorDetail:       detail,
		ParentOrderID:     order.ParentOrderID,
		OriginalServiceID: order.OriginalServiceID,
		UserID:            order.UserID,
		CorrelationToken:  order.CorrelationToken,
		TraceID:           order.TraceID,
	}, nil
}
