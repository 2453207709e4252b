package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchdogFailsStuckOrderAndFreesService(t *testing.T) {
	f := newFixture(t, inlineTasks{}, staticIssuer{})
	f.registry.Register(entities.DeployerKindTerraBoot, pendingDeployer())

	input := deployInput()
	input.DeployerKind = entities.DeployerKindTerraBoot
	order, err := f.manager.CreateOrder(context.Background(), input)
	require.NoError(t, err)

	watchdog := NewWatchdog(f.manager, f.orders, time.Hour, time.Minute)

	// Still inside the allowed duration: nothing happens.
	f.advance(30 * time.Minute)
	watchdog.Scan(context.Background())
	stored, err := f.manager.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusInProgress, stored.Status)

	// Past the deadline: forced failure, lock released.
	f.advance(31 * time.Minute)
	watchdog.Scan(context.Background())

	stored, err = f.manager.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, entities.OrderStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorDetail)
	assert.Equal(t, entities.ErrorCodeTimeout, stored.ErrorDetail.Code)

	// A subsequent order for the same service is admitted again.
	_, err = f.manager.CreateOrder(context.Background(), CreateOrderInput{
		ServiceID: order.ServiceID,
		TaskType:  entities.TaskTypeDeploy,
		UserID:    "alice",
	})
	require.NoError(t, err)
}

func TestWatchdogLosesRaceAgainstLateWebhook(t *testing.T) {
	f := newFixture(t, inlineTasks{}, staticIssuer{})
	f.registry.Register(entities.DeployerKindTerraBoot, pendingDeployer())

	input := deployInput()
	input.DeployerKind = entities.DeployerKindTerraBoot
	order, err := f.manager.CreateOrder(context.Background(), input)
	require.NoError(t, err)

	// The webhook lands first; the later watchdog pass must not overwrite
	// the genuine outcome.
	_, err = f.manager.HandleCallback(context.Background(), order.CorrelationToken, entities.Outcome{Success: true})
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	watchdog := NewWatchdog(f.manager, f.orders, time.Hour, time.Minute)
	watchdog.Scan(context.Background())

	stored, err := f.manager.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusSuccessful, stored.Status)
}
