package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"erasure-portal/pkg/models"
)

// APIKeyHeader carries the static key the analytics endpoint expects
const APIKeyHeader = "X-API-Key"

// Client defines the interface for posting submissions to the analytics webhook
type Client interface {
	Notify(ctx context.Context, payload models.Payload) error
}

type clientImpl struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a new analytics webhook client
func NewClient(url, apiKey string, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &clientImpl{
		url:    url,
		apiKey: apiKey,
		http:   httpClient,
	}
}

func (c *clientImpl) Notify(ctx context.Context, payload models.Payload) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error posting to webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("error from analytics webhook: status %d", resp.StatusCode)
	}
	return nil
}
