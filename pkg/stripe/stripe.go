// Package stripe wraps the Stripe checkout, refund and webhook APIs behind
// the small surface the booking flow needs.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/pitchside/pitchside_backend/config"
)

const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrUnavailable means Stripe could not be reached or failed on its
	// side; the caller may retry.
	ErrUnavailable     = errors.New("payment provider unavailable")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrRejected        = errors.New("payment provider rejected the request")
	ErrAlreadyRefunded = errors.New("payment already refunded")
	ErrBadSignature    = errors.New("webhook signature verification failed")
	ErrDisabled        = errors.New("payments are disabled")
)

// Session is the part of a Checkout Session the booking flow reads.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string // paid, unpaid, no_payment_required
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	Metadata        map[string]string
}

func (s *Session) Paid() bool {
	return s.PaymentStatus == string(stripego.CheckoutSessionPaymentStatusPaid)
}

type CheckoutRequest struct {
	ProductName   string
	Amount        int64 // minor units
	CustomerEmail string
	Metadata      map[string]string
}

type WebhookEvent struct {
	ID      string
	Type    string
	Session *Session // set for checkout.session.* events
}

type Client struct {
	api           *client.API
	enabled       bool
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

func NewFromConfig(cfg config.StripeConfig) *Client {
	c := &Client{
		enabled:       cfg.Enabled,
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
	if c.currency == "" {
		c.currency = string(stripego.CurrencyUSD)
	}
	if cfg.Enabled {
		c.api = &client.API{}
		c.api.Init(cfg.SecretKey, nil)
	}
	return c
}

func (c *Client) Currency() string {
	return c.currency
}

// CreateCheckoutSession starts a one-line-item payment. Metadata is copied
// to the payment intent so refunds can be traced back to the booking.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}

	params := &stripego.CheckoutSessionParams{
		Mode:       stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL: stripego.String(c.successURL),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String(c.currency),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(req.ProductName),
				},
				UnitAmount: stripego.Int64(req.Amount),
			},
			Quantity: stripego.Int64(1),
		}},
		Metadata: req.Metadata,
		PaymentIntentData: &stripego.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	if c.cancelURL != "" {
		params.CancelURL = stripego.String(c.cancelURL)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, classify("create checkout session", err)
	}
	return fromStripe(s), nil
}

// GetSession re-fetches a session; the payment status in a client redirect
// is never trusted.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, classify("get checkout session", err)
	}
	return fromStripe(s), nil
}

// Refund returns the full amount of a payment intent. The idempotency key
// makes repeated attempts for the same intent safe.
func (c *Client) Refund(ctx context.Context, paymentIntentID string, metadata map[string]string) error {
	if !c.enabled {
		return ErrDisabled
	}
	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(paymentIntentID),
		Metadata:      metadata,
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + paymentIntentID)

	if _, err := c.api.Refunds.New(params); err != nil {
		return classify("refund", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (c *Client) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var s stripego.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = fromStripe(&s)
	}
	return out, nil
}

func fromStripe(s *stripego.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	return out
}

// classify maps a stripe-go error onto the package sentinels.
func classify(op string, err error) error {
	var se *stripego.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	switch {
	case se.Code == stripego.ErrorCodeChargeAlreadyRefunded:
		return fmt.Errorf("%s: %w", op, ErrAlreadyRefunded)
	case se.Code == stripego.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500 || se.HTTPStatusCode == 0:
		return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, se.Msg)
	default:
		return fmt.Errorf("%s: %w: %s", op, ErrRejected, se.Msg)
	}
}
