package orders

import (
	"testing"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestCheckAdmissibleTable(t *testing.T) {
	deployed := &entities.ServiceEntity{State: entities.ServiceStateDeployed}
	destroyed := &entities.ServiceEntity{State: entities.ServiceStateDestroyed}
	locked := &entities.ServiceEntity{
		State:      entities.ServiceStateDeployed,
		LockConfig: entities.LockConfig{DestroyDisabled: true, ModifyDisabled: true},
	}

	tests := []struct {
		name     string
		taskType entities.TaskType
		service  *entities.ServiceEntity
		wantErr  bool
	}{
		{"deploy new service", entities.TaskTypeDeploy, nil, false},
		{"deploy over deployed", entities.TaskTypeDeploy, deployed, true},
		{"deploy after destroy", entities.TaskTypeDeploy, destroyed, false},
		{"modify deployed", entities.TaskTypeModify, deployed, false},
		{"modify destroyed", entities.TaskTypeModify, destroyed, true},
		{"modify locked", entities.TaskTypeModify, locked, true},
		{"destroy deployed", entities.TaskTypeDestroy, deployed, false},
		{"destroy destroyed", entities.TaskTypeDestroy, destroyed, true},
		{"destroy locked", entities.TaskTypeDestroy, locked, true},
		{"destroy without service", entities.TaskTypeDestroy, nil, true},
		{"lock change deployed", entities.TaskTypeLockChange, deployed, false},
		{"lock change destroyed", entities.TaskTypeLockChange, destroyed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAdmissible(tt.taskType, tt.service)
			if tt.wantErr {
				assert.ErrorIs(t, err, entities.ErrOrderRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTerminalStateMapping(t *testing.T) {
	state, ok := terminalState(entities.TaskTypeDeploy, true)
	assert.True(t, ok)
	assert.Equal(t, entities.ServiceStateDeployed, state)

	state, _ = terminalState(entities.TaskTypeDeploy, false)
	assert.Equal(t, entities.ServiceStateDeployFailed, state)

	state, _ = terminalState(entities.TaskTypeDestroy, true)
	assert.Equal(t, entities.ServiceStateDestroyed, state)

	state, _ = terminalState(entities.TaskTypeModify, false)
	assert.Equal(t, entities.ServiceStateModifyFailed, state)

	_, ok = terminalState(entities.TaskTypeLockChange, true)
	assert.False(t, ok, "lock changes do not move the deployment state")
}
