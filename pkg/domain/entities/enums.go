package entities

type TaskType string

const (
	TaskTypeDeploy     TaskType = "Deploy"
	TaskTypeDestroy    TaskType = "Destroy"
	TaskTypeModify     TaskType = "Modify"
	TaskTypeRecreate   TaskType = "Recreate"
	TaskTypePort       TaskType = "Port"
	TaskTypeLockChange TaskType = "LockChange"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeDeploy, TaskTypeDestroy, TaskTypeModify,
		TaskTypeRecreate, TaskTypePort, TaskTypeLockChange:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "Created"
	OrderStatusInProgress OrderStatus = "InProgress"
	OrderStatusSuccessful OrderStatus = "Successful"
	OrderStatusFailed     OrderStatus = "Failed"
)

// Terminal reports whether no further transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusSuccessful || s == OrderStatusFailed
}

type ServiceState string

const (
	ServiceStateDeploying     ServiceState = "Deploying"
	ServiceStateDeployed      ServiceState = "Deployed"
	ServiceStateDeployFailed  ServiceState = "DeployFailed"
	ServiceStateModifying     ServiceState = "Modifying"
	ServiceStateModifyFailed  ServiceState = "ModifyFailed"
	ServiceStateDestroying    ServiceState = "Destroying"
	ServiceStateDestroyed     ServiceState = "Destroyed"
	ServiceStateDestroyFailed ServiceState = "DestroyFailed"
	ServiceStateUnknown       ServiceState = "Unknown"
)

type DeployerKind string

const (
	DeployerKindTerraform DeployerKind = "Terraform"
	DeployerKindOpenTofu  DeployerKind = "OpenTofu"
	DeployerKindHelm      DeployerKind = "Helm"
	DeployerKindTerraBoot DeployerKind = "TerraBoot"
	DeployerKindTofuMaker DeployerKind = "TofuMaker"
)

func (k DeployerKind) Valid() bool {
	switch k {
	case DeployerKindTerraform, DeployerKindOpenTofu, DeployerKindHelm,
		DeployerKindTerraBoot, DeployerKindTofuMaker:
		return true
	}
	return false
}

// Remote reports whether the backend completes asynchronously via webhook
// callback rather than in the dispatching process.
func (k DeployerKind) Remote() bool {
	return k == DeployerKindTerraBoot || k == DeployerKindTofuMaker
}
