package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"erasure-portal/pkg/models"
)

// Client defines the interface for the email relay that forwards submissions to the sales inbox
type Client interface {
	Forward(ctx context.Context, payload models.Payload) error
}

// Options configures the relay form post
type Options struct {
	URL        string
	WebhookURL string
	Template   string
	CC         []string
	Subject    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type clientImpl struct {
	opts   Options
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a new relay client
func NewClient(opts Options) Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &clientImpl{
		opts:   opts,
		http:   httpClient,
		logger: opts.Logger.With().Str("component", "relay_client").Logger(),
	}
}

func (c *clientImpl) Forward(ctx context.Context, payload models.Payload) error {
	form := c.encode(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error forwarding to relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("error from email relay: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Debug().Int("status", resp.StatusCode).Msg("submission forwarded to relay")
	return nil
}

// encode builds the relay form: control fields first, then every payload field
func (c *clientImpl) encode(payload models.Payload) url.Values {
	form := url.Values{}
	if c.opts.WebhookURL != "" {
		form.Set("_webhook", c.opts.WebhookURL)
	}
	form.Set("_captcha", "false")
	if c.opts.Template != "" {
		form.Set("_template", c.opts.Template)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set(k, payload[k])
	}

	if email := payload["email"]; email != "" {
		form.Set("_replyto", email)
	}
	if len(c.opts.CC) > 0 {
		form.Set("_cc", strings.Join(c.opts.CC, ","))
	}
	subject := c.opts.Subject
	if name := payload["name"]; name != "" && subject != "" {
		subject = fmt.Sprintf("%s from %s", subject, name)
	}
	if subject != "" {
		form.Set("_subject", subject)
	}
	return form
}
