package repositories

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/infrastructure/postgres/schemas"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderPostgresRepository struct {
	db *gorm.DB
}

func NewOrderPostgresRepository(db *gorm.DB) *OrderPostgresRepository {
	return &OrderPostgresRepository{db: db}
}

func (r *OrderPostgresRepository) CreateOrder(order *entities.OrderEntity) error {
	row, err := schemas.OrderFromEntity(order)
	if err != nil {
		return err
	}
	return r.db.Create(row).Error
}

func (r *OrderPostgresRepository) GetOrderByID(id uuid.UUID) (*entities.OrderEntity, error) {
	var row schemas.Order
	err := r.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToEntity()
}

func (r *OrderPostgresRepository) GetOrderByCorrelationToken(token uuid.UUID) (*entities.OrderEntity, error) {
	var row schemas.Order
	err := r.db.Where("correlation_token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToEntity()
}

func (r *OrderPostgresRepository) GetOrdersByServiceID(serviceID uuid.UUID) ([]*entities.OrderEntity, error) {
	var rows []schemas.Order
	err := r.db.Where("service_id = ?", serviceID).Order("started_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	orders := make([]*entities.OrderEntity, 0, len(rows))
	for i := range rows {
		order, err := rows[i].ToEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// MarkInProgress moves a freshly persisted order out of Created. Returns
// false if the order was not in Created any more.
func (r *OrderPostgresRepository) MarkInProgress(id uuid.UUID) (bool, error) {
	result := r.db.Model(&schemas.Order{}).
		Where("id = ? AND status = ?", id, entities.OrderStatusCreated).
		Update("status", entities.OrderStatusInProgress)
	return result.RowsAffected == 1, result.Error
}

// CompleteOrder performs the single permitted terminal transition as one
// compare-and-set: the row is only written if the order is still
// InProgress, so a late webhook and a watchdog timeout cannot both win.
func (r *OrderPostgresRepository) CompleteOrder(
	id uuid.UUID,
	status entities.OrderStatus,
	completedAt time.Time,
	resultProperties datatypes.JSON,
	errorDetail *entities.ErrorDetail,
) (bool, error) {
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
	}
	if resultProperties != nil {
		updates["result_properties"] = resultProperties
	}
	if errorDetail != nil {
		raw, err := json.Marshal(errorDetail)
		if err != nil {
			return false, err
		}
		updates["error_detail"] = datatypes.JSON(raw)
	}
	result := r.db.Model(&schemas.Order{}).
		Where("id = ? AND status = ?", id, entities.OrderStatusInProgress).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

// GetInProgressOrders returns all orders not yet terminal, oldest first.
// Used by the watchdog and by startup reconciliation.
func (r *OrderPostgresRepository) GetInProgressOrders() ([]*entities.OrderEntity, error) {
	var rows []schemas.Order
	err := r.db.
		Where("status IN ?", []entities.OrderStatus{entities.OrderStatusCreated, entities.OrderStatusInProgress}).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	orders := make([]*entities.OrderEntity, 0, len(rows))
	for i := range rows {
		order, err := rows[i].ToEntity()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
