package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arsmn/go-smsir/smsir"
	"github.com/nyaruka/phonenumbers"

	"github.com/pitchside/pitchside_backend/config"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// BookingConfirmation fills the sms.ir confirmation template. The template
// must declare the parameters venue, date and time.
type BookingConfirmation struct {
	Phone     string
	VenueName string
	Date      string
	Time      string
}

// Client sends SMS through sms.ir.
type Client struct {
	client     *smsir.Client
	enabled    bool
	region     string
	templateID string
}

// NewFromConfig creates a new SMS client from the application configuration.
// If SMS is disabled, returns a client that no-ops on all operations.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	region := strings.ToUpper(cfg.DefaultRegion)
	if region == "" {
		region = "US"
	}
	if !cfg.Enabled {
		return &Client{enabled: false, region: region}, nil
	}

	if cfg.SMSIR.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key required when SMS enabled")
	}
	if cfg.SMSIR.TemplateID == "" {
		return nil, fmt.Errorf("sms.ir template id required when SMS enabled")
	}

	return &Client{
		client:     smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey),
		enabled:    true,
		region:     region,
		templateID: cfg.SMSIR.TemplateID,
	}, nil
}

// Normalize parses phone in the client's default region and returns it in
// E.164 form.
func (c *Client) Normalize(phone string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), c.region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// SendBookingConfirmation is a no-op when SMS is disabled.
func (c *Client) SendBookingConfirmation(ctx context.Context, b BookingConfirmation) error {
	if !c.enabled {
		return nil
	}

	mobile, err := c.Normalize(b.Phone)
	if err != nil {
		return err
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: c.templateID,
		Parameters: []smsir.UltraFastParameter{
			{Key: "venue", Value: b.VenueName},
			{Key: "date", Value: b.Date},
			{Key: "time", Value: b.Time},
		},
	}

	if _, err := c.client.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}

func (c *Client) IsEnabled() bool {
	return c.enabled
}
