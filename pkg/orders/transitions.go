package orders

import (
	"fmt"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
)

// admissibleStates is the explicit transition table: for each task type, the
// service states an order may be created from. A nil service (not yet
// deployed) only admits Deploy.
var admissibleStates = map[entities.TaskType][]entities.ServiceState{
	entities.TaskTypeDeploy: {
		entities.ServiceStateDestroyed,
		entities.ServiceStateDeployFailed,
	},
	entities.TaskTypeModify: {
		entities.ServiceStateDeployed,
		entities.ServiceStateModifyFailed,
	},
	entities.TaskTypeDestroy: {
		entities.ServiceStateDeployed,
		entities.ServiceStateDeployFailed,
		entities.ServiceStateModifyFailed,
		entities.ServiceStateDestroyFailed,
	},
	// Recreate and Port deploy onto a fresh service id; the source service
	// is checked separately and destroyed by a follow-up child order.
	entities.TaskTypeRecreate:   nil,
	entities.TaskTypePort:       nil,
	entities.TaskTypeLockChange: nil, // admissible from any settled state
}

// checkAdmissible decides whether taskType may be ordered given the
// service's current state and lock flags. service is nil for a first
// deployment.
func checkAdmissible(taskType entities.TaskType, service *entities.ServiceEntity) error {
	if service == nil {
		switch taskType {
		case entities.TaskTypeDeploy, entities.TaskTypeRecreate, entities.TaskTypePort:
			return nil
		}
		return fmt.Errorf("%w: %s requires an existing service", entities.ErrOrderRejected, taskType)
	}

	switch taskType {
	case entities.TaskTypeDestroy:
		if service.LockConfig.DestroyDisabled {
			return fmt.Errorf("%w: destroy is disabled by the service lock", entities.ErrOrderRejected)
		}
	case entities.TaskTypeModify:
		if service.LockConfig.ModifyDisabled {
			return fmt.Errorf("%w: modify is disabled by the service lock", entities.ErrOrderRejected)
		}
	case entities.TaskTypeLockChange:
		return nil
	}

	allowed := admissibleStates[taskType]
	for _, state := range allowed {
		if service.State == state {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not permitted while the service is %s",
		entities.ErrOrderRejected, taskType, service.State)
}

// transitionalState is the service state while an order of the given task
// type is in flight.
func transitionalState(taskType entities.TaskType) (entities.ServiceState, bool) {
	switch taskType {
	case entities.TaskTypeDeploy, entities.TaskTypeRecreate, entities.TaskTypePort:
		return entities.ServiceStateDeploying, true
	case entities.TaskTypeModify:
		return entities.ServiceStateModifying, true
	case entities.TaskTypeDestroy:
		return entities.ServiceStateDestroying, true
	}
	return "", false
}

// terminalState maps an order's terminal outcome to the service state
// written alongside it.
func terminalState(taskType entities.TaskType, success bool) (entities.ServiceState, bool) {
	switch taskType {
	case entities.TaskTypeDeploy, entities.TaskTypeRecreate, entities.TaskTypePort:
		if success {
			return entities.ServiceStateDeployed, true
		}
		return entities.ServiceStateDeployFailed, true
	case entities.TaskTypeModify:
		if success {
			return entities.ServiceStateDeployed, true
		}
		return entities.ServiceStateModifyFailed, true
	case entities.TaskTypeDestroy:
		if success {
			return entities.ServiceStateDestroyed, true
		}
		return entities.ServiceStateDestroyFailed, true
	}
	return "", false
}
