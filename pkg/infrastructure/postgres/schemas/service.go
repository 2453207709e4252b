package schemas

import (
	"encoding/json"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	ID           uuid.UUID             `gorm:"type:uuid;primaryKey;column:id"`
	Name         string                `gorm:"column:name;not null"`
	Provider     string                `gorm:"column:provider;not null"`
	DeployerKind entities.DeployerKind `gorm:"column:deployer_kind;not null"`
	State        entities.ServiceState `gorm:"column:state;not null"`
	LockConfig   datatypes.JSON        `gorm:"type:jsonb;column:lock_config"`
	Config       datatypes.JSON        `gorm:"type:jsonb;column:config"`
	Version      int64                 `gorm:"column:version;not null;default:0"`
	CreatedAt    time.Time             `gorm:"autoCreateTime;column:created_at"`
	UpdatedAt    time.Time             `gorm:"autoUpdateTime;column:updated_at"`
	DeletedAt    gorm.DeletedAt        `gorm:"index;column:deleted_at"`
}

func (Service) TableName() string {
	return "services"
}

func (s *Service) ToEntity() (*entities.ServiceEntity, error) {
	var lock entities.LockConfig
	if len(s.LockConfig) > 0 {
		if err := json.Unmarshal(s.LockConfig, &lock); err != nil {
			return nil, err
		}
	}
	return &entities.ServiceEntity{
		ID:           s.ID,
		Name:         s.Name,
		Provider:     s.Provider,
		DeployerKind: s.DeployerKind,
		State:        s.State,
		LockConfig:   lock,
		Config:       s.Config,
		Version:      s.Version,
	}, nil
}

func ServiceFromEntity(service *entities.ServiceEntity) (*Service, error) {
	lock, err := json.Marshal(service.LockConfig)
	if err != nil {
		return nil, err
	}
	return &Service{
		ID:           service.ID,
		Name:         service.Name,
		Provider:     service.Provider,
		DeployerKind: service.DeployerKind,
		State:        service.State,
		LockConfig:   datatypes.JSON(lock),
		Config:       service.Config,
		Version:      service.Version,
	}, nil
}
