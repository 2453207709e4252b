package entities

import "errors"

// Rejections: no order is created.
var (
	ErrServiceBusy     = errors.New("another order is already in progress for this service")
	ErrOrderRejected   = errors.New("task type is not permitted for the service's current state")
	ErrAccessDenied    = errors.New("initiator is not permitted to order changes for this service")
	ErrServiceNotFound = errors.New("service not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// Consistency faults: orchestration invariants were violated. These are
// operator-facing, never returned to API callers as business errors.
var (
	ErrConflictingCompletion = errors.New("order already completed with a different outcome")
	ErrUnknownCorrelation    = errors.New("no pending order matches the correlation token")
)

// ErrorCode classifies a terminal failure so callers can decide whether a
// retry order is worth creating.
type ErrorCode string

const (
	ErrorCodeCredentialFetch     ErrorCode = "CredentialFetchFailed"
	ErrorCodeDeployerUnreachable ErrorCode = "DeployerUnreachable"
	ErrorCodeInvalidRequest      ErrorCode = "InvalidRequest"
	ErrorCodeExecutionFailed     ErrorCode = "ExecutionFailed"
	ErrorCodeRateLimited         ErrorCode = "RateLimited"
	ErrorCodeTimeout             ErrorCode = "Timeout"
	ErrorCodeInterrupted         ErrorCode = "Interrupted"
)

// ErrorDetail is the failure payload persisted on a FAILED order.
type ErrorDetail struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message
}
