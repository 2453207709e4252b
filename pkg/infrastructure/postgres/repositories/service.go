package repositories

import (
	"encoding/json"
	"errors"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/infrastructure/postgres/schemas"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServicePostgresRepository struct {
	db *gorm.DB
}

func NewServicePostgresRepository(db *gorm.DB) *ServicePostgresRepository {
	return &ServicePostgresRepository{db: db}
}

func (r *ServicePostgresRepository) CreateService(service *entities.ServiceEntity) error {
	row, err := schemas.ServiceFromEntity(service)
	if err != nil {
		return err
	}
	return r.db.Create(row).Error
}

func (r *ServicePostgresRepository) GetServiceByID(id uuid.UUID) (*entities.ServiceEntity, error) {
	var row schemas.Service
	err := r.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToEntity()
}

func (r *ServicePostgresRepository) GetAllServices() ([]*entities.ServiceEntity, error) {
	var rows []schemas.Service
	err := r.db.Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	services := make([]*entities.ServiceEntity, 0, len(rows))
	for i := range rows {
		service, err := rows[i].ToEntity()
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, nil
}

// UpdateState writes the new deployment state if the record is still at the
// expected version. Returns false on a version conflict.
func (r *ServicePostgresRepository) UpdateState(id uuid.UUID, state entities.ServiceState, expectedVersion int64) (bool, error) {
	result := r.db.Model(&schemas.Service{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"state":   state,
			"version": expectedVersion + 1,
		})
	return result.RowsAffected == 1, result.Error
}

// UpdateLockConfig writes the administrative lock flags under the same
// optimistic-concurrency rule as UpdateState.
func (r *ServicePostgresRepository) UpdateLockConfig(id uuid.UUID, lock entities.LockConfig, expectedVersion int64) (bool, error) {
	raw, err := json.Marshal(lock)
	if err != nil {
		return false, err
	}
	result := r.db.Model(&schemas.Service{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"lock_config": datatypes.JSON(raw),
			"version":     expectedVersion + 1,
		})
	return result.RowsAffected == 1, result.Error
}
