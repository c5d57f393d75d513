package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provider pushes local profile changes back to the identity provider
// so the authoritative record and the local one stay in step.
type Provider interface {
	UpdateProfile(ctx context.Context, externalID string, patch ProfilePatch) error
}

type ProfilePatch struct {
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) UpdateProfile(ctx context.Context, externalID string, patch ProfilePatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, p.baseURL+"/v1/users/"+externalID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("identity provider update failed: %s", resp.Status)
	}
	return nil
}
