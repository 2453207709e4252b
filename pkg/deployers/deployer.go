package deployers

import (
	"context"
	"fmt"
	"sync"

	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
)

// DispatchResult is what a backend reports at dispatch time. Synchronous
// backends hand back a terminal Outcome; asynchronous backends return
// Completed=false and report the outcome later through the webhook endpoint,
// correlated by the order's correlation token.
type DispatchResult struct {
	Completed bool
	Outcome   *entities.Outcome
}

// Deployer executes one provisioning/change operation against a backend.
type Deployer interface {
	Start(ctx context.Context, order *entities.OrderEntity, credential credentials.Credential) (DispatchResult, error)
}

// Registry maps deployer kinds to implementations.
type Registry struct {
	mu       sync.RWMutex
	backends map[entities.DeployerKind]Deployer
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[entities.DeployerKind]Deployer),
	}
}

func (r *Registry) Register(kind entities.DeployerKind, deployer Deployer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[kind] = deployer
}

func (r *Registry) Get(kind entities.DeployerKind) (Deployer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deployer, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("no deployer registered for kind %q", kind)
	}
	return deployer, nil
}
