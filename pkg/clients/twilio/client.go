package twilio

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"erasure-portal/pkg/models"
)

// maxBodyLen keeps alerts inside two SMS segments
const maxBodyLen = 300

// Client defines the interface for sending SMS alerts about new submissions through Twilio
type Client interface {
	SendAlert(payload models.Payload) error
}

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type clientImpl struct {
	api    messageCreator
	from   string
	to     string
	logger zerolog.Logger
}

// NewClient creates a new Twilio client that alerts the sales phone number
func NewClient(accountSid, authToken, from, to string, logger zerolog.Logger) Client {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &clientImpl{
		api:    client.Api,
		from:   from,
		to:     to,
		logger: logger.With().Str("component", "twilio_client").Logger(),
	}
}

func (c *clientImpl) SendAlert(payload models.Payload) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(c.to)
	params.SetFrom(c.from)
	params.SetBody(alertBody(payload))

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("error sending SMS alert: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		c.logger.Debug().Str("sid", *resp.Sid).Msg("sent SMS alert")
	}
	return nil
}

func alertBody(payload models.Payload) string {
	who := payload["name"]
	if company := payload["company"]; company != "" {
		who = fmt.Sprintf("%s (%s)", who, company)
	}
	body := fmt.Sprintf("New %s inquiry from %s: %s", payload["usage_type"], who, payload["message"])
	body = strings.Join(strings.Fields(body), " ")
	if runes := []rune(body); len(runes) > maxBodyLen {
		body = string(runes[:maxBodyLen-3]) + "..."
	}
	return body
}
