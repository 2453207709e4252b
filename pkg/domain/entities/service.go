package entities

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LockConfig disables individual mutating task types for a service. It is
// changed by LockChange orders only.
type LockConfig struct {
	DestroyDisabled bool `json:"destroyDisabled"`
	ModifyDisabled  bool `json:"modifyDisabled"`
}

// ServiceEntity is the deployment record for one service: the last known
// deployment state plus the administrative lock flags. Version is bumped on
// every state write for optimistic concurrency.
type ServiceEntity struct {
	ID           uuid.UUID
	Name         string
	Provider     string // cloud provider the service is deployed on, keys credential lookups
	DeployerKind DeployerKind
	State        ServiceState
	LockConfig   LockConfig
	Config       datatypes.JSON
	Version      int64
}

type ServiceStateWithID struct {
	ServiceID uuid.UUID
	State     ServiceState
}
