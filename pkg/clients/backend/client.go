package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"erasure-portal/pkg/models"
)

// Client defines the interface for interacting with the site backend API
type Client interface {
	CreateSubmission(ctx context.Context, payload models.Payload) error
	GetOrderDetails(ctx context.Context, identifier string) (*models.ResolvedRecord, error)
}

// APIError is returned when the backend answers with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error from backend API: status %d", e.StatusCode)
	}
	return fmt.Sprintf("error from backend API: status %d: %s", e.StatusCode, e.Message)
}

// UserMessage is the server-provided text, safe to show to visitors
func (e *APIError) UserMessage() string { return e.Message }

// Options configures a backend client
type Options struct {
	BaseURL           string
	APIToken          string
	ContactCollection string
	OrdersCollection  string
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

type clientImpl struct {
	baseURL           string
	apiToken          string
	contactCollection string
	ordersCollection  string
	http              *http.Client
	logger            zerolog.Logger
}

// NewClient creates a new backend client
func NewClient(opts Options) Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &clientImpl{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		apiToken:          opts.APIToken,
		contactCollection: opts.ContactCollection,
		ordersCollection:  opts.OrdersCollection,
		http:              httpClient,
		logger:            opts.Logger.With().Str("component", "backend_client").Logger(),
	}
}

func (c *clientImpl) CreateSubmission(ctx context.Context, payload models.Payload) error {
	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, url.PathEscape(c.contactCollection))

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error creating submission: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, body)
	}

	// An empty body is a valid acceptance; anything else must at least be JSON.
	if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
		return fmt.Errorf("error parsing response: invalid JSON from backend")
	}

	c.logger.Debug().Str("collection", c.contactCollection).Int("status", resp.StatusCode).Msg("submission stored")
	return nil
}

func (c *clientImpl) GetOrderDetails(ctx context.Context, identifier string) (*models.ResolvedRecord, error) {
	endpoint := fmt.Sprintf("%s/api/%s/%s/details",
		c.baseURL, url.PathEscape(c.ordersCollection), url.PathEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching order details: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, body)
	}

	record, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	record.Identifier = identifier
	return record, nil
}

func (c *clientImpl) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

// decodeRecord accepts either the bare record or one wrapped in a {"data": ...} envelope
func decodeRecord(body []byte) (*models.ResolvedRecord, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}

	var record models.ResolvedRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, err
	}
	if record.Order.ID == "" && record.Order.OrderNumber == "" {
		return nil, fmt.Errorf("response has no order data")
	}
	return &record, nil
}

// apiError extracts the server-provided message from a {message, errors} body when there is one
func apiError(status int, body []byte) error {
	var errorResponse struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &errorResponse); err == nil {
		apiErr.Message = strings.TrimSpace(errorResponse.Message)
		if apiErr.Message == "" && len(errorResponse.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			var plain string
			if json.Unmarshal(errorResponse.Error, &nested) == nil {
				apiErr.Message = strings.TrimSpace(nested.Message)
			} else if json.Unmarshal(errorResponse.Error, &plain) == nil {
				apiErr.Message = strings.TrimSpace(plain)
			}
		}
	}
	return apiErr
}
