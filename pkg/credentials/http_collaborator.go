package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPCollaborator fetches credentials from the external credential service.
type HTTPCollaborator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCollaborator(baseURL string) *HTTPCollaborator {
	return &HTTPCollaborator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type credentialResponse struct {
	Properties map[string]string `json:"properties"`
	TTLSeconds int64             `json:"ttlSeconds"`
}

func (h *HTTPCollaborator) Fetch(ctx context.Context, key Key) (Credential, time.Duration, error) {
	query := url.Values{}
	query.Set("provider", key.Provider)
	query.Set("principal", key.Principal)
	query.Set("kind", key.Kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/credentials?"+query.Encode(), nil)
	if err != nil {
		return Credential{}, 0, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Credential{}, 0, fmt.Errorf("credential service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credential{}, 0, fmt.Errorf("credential service returned %d", resp.StatusCode)
	}

	var body credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Credential{}, 0, fmt.Errorf("credential service: decode response: %w", err)
	}
	if body.TTLSeconds <= 0 {
		return Credential{}, 0, fmt.Errorf("credential service granted non-positive ttl %d", body.TTLSeconds)
	}

	return Credential{Key: key, Properties: body.Properties},
		time.Duration(body.TTLSeconds) * time.Second, nil
}
