package deployers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// RemoteRequest is the payload sent to a terra-boot/tofu-maker style
// service. The remote service performs the provisioning and reports the
// outcome by POSTing to CallbackURL with the same correlation token.
type RemoteRequest struct {
	CorrelationToken string            `json:"correlationToken"`
	CallbackURL      string            `json:"callbackUrl"`
	TaskType         entities.TaskType `json:"taskType"`
	RequestBody      json.RawMessage   `json:"requestBody,omitempty"`
	EnvVariables     map[string]string `json:"envVariables,omitempty"`
}

// Remote dispatches to an HTTP provisioning service with an OAuth2
// client-credentials bearer token. Start returns as soon as the remote
// service accepts the task; completion arrives later through the webhook
// receiver.
type Remote struct {
	endpoint        string
	callbackBaseURL string
	client          *http.Client
}

// NewRemote builds a Remote whose outbound requests carry bearer tokens
// from the given token endpoint. An empty token URL disables auth, for
// deployments where the remote service sits on a trusted network.
func NewRemote(endpoint, callbackBaseURL string, oauth clientcredentials.Config) *Remote {
	client := &http.Client{Timeout: 30 * time.Second}
	if oauth.TokenURL != "" {
		client = oauth.Client(context.Background())
		client.Timeout = 30 * time.Second
	}
	return &Remote{
		endpoint:        endpoint,
		callbackBaseURL: callbackBaseURL,
		client:          client,
	}
}

func (r *Remote) Start(ctx context.Context, order *entities.OrderEntity, credential credentials.Credential) (DispatchResult, error) {
	payload := RemoteRequest{
		CorrelationToken: order.CorrelationToken.String(),
		CallbackURL:      fmt.Sprintf("%s/api/v1/webhooks/deployers/%s", r.callbackBaseURL, order.CorrelationToken),
		TaskType:         order.TaskType,
		RequestBody:      json.RawMessage(order.RequestBody),
		EnvVariables:     credential.Properties,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("marshal remote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/tasks", bytes.NewReader(body))
	if err != nil {
		return DispatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return DispatchResult{}, &entities.ErrorDetail{
			Code:      entities.ErrorCodeDeployerUnreachable,
			Message:   fmt.Sprintf("remote deployer at %s: %v", r.endpoint, err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return DispatchResult{}, &entities.ErrorDetail{
			Code:      entities.ErrorCodeRateLimited,
			Message:   "remote deployer rejected the task: rate limited",
			Retryable: false,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return DispatchResult{}, &entities.ErrorDetail{
			Code:      entities.ErrorCodeInvalidRequest,
			Message:   fmt.Sprintf("remote deployer returned %d: %s", resp.StatusCode, detail),
			Retryable: false,
		}
	}

	logger.Info("remote deployer accepted task",
		zap.String("orderId", order.ID.String()),
		zap.String("correlationToken", order.CorrelationToken.String()),
		zap.String("traceId", entities.TraceIDFrom(ctx)))

	return DispatchResult{Completed: false}, nil
}
