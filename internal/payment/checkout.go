// Package payment is the Stripe side of the premium upgrade: checkout session
// creation per plan tier, session lookup and the signed webhook endpoint.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/pkordes/trucklog/internal/domain"
)

// Prices charged when no Stripe price id is configured, in BRL cents.
const (
	currency          = "brl"
	monthlyPriceCents = 799
	yearlyPriceCents  = 3599
)

// Config carries the Stripe settings the checkout needs.
type Config struct {
	SecretKey      string
	PriceIDMonthly string
	PriceIDYearly  string
	// SuccessURL may contain {CHECKOUT_SESSION_ID}; Stripe substitutes it.
	SuccessURL string
	CancelURL  string
}

// Session is the part of a checkout session the upgrade flow cares about.
type Session struct {
	ID     string
	UserID string
	Paid   bool
}

// Checkout creates and looks up Stripe checkout sessions.
type Checkout struct {
	cfg           Config
	createSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSession    func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewCheckout returns a Checkout bound to the Stripe API.
func NewCheckout(cfg Config) *Checkout {
	return &Checkout{
		cfg:           cfg,
		createSession: stripesession.New,
		getSession:    stripesession.Get,
	}
}

// Enabled reports whether a secret key is configured.
func (c *Checkout) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.SecretKey) != ""
}

// BeginCheckout opens a subscription checkout for userID and returns the
// hosted page URL. The user id travels as client_reference_id so that the
// webhook and the verify call can attribute the payment.
func (c *Checkout) BeginCheckout(ctx context.Context, userID string, plan domain.PlanTier) (string, error) {
	if !c.Enabled() {
		return "", domain.ErrPaymentUnavailable
	}
	stripe.Key = strings.TrimSpace(c.cfg.SecretKey)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{c.lineItem(plan)},
	}
	params.Context = ctx
	params.AddMetadata("plan", string(plan))

	session, err := c.createSession(params)
	if err != nil {
		return "", fmt.Errorf("payment.Checkout.BeginCheckout: %w", err)
	}
	if session == nil || session.URL == "" {
		return "", errors.New("payment.Checkout.BeginCheckout: session has no url")
	}
	return session.URL, nil
}

func (c *Checkout) lineItem(plan domain.PlanTier) *stripe.CheckoutSessionLineItemParams {
	priceID, cents, interval, name := c.cfg.PriceIDMonthly, int64(monthlyPriceCents), "month", "Premium Monthly"
	if plan == domain.PlanYearly {
		priceID, cents, interval, name = c.cfg.PriceIDYearly, int64(yearlyPriceCents), "year", "Premium Yearly"
	}

	if priceID = strings.TrimSpace(priceID); priceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(name),
				Description: stripe.String("Unlimited journeys"),
			},
			UnitAmount: stripe.Int64(cents),
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(interval),
			},
		},
		Quantity: stripe.Int64(1),
	}
}

// LookupSession fetches a checkout session by id.
func (c *Checkout) LookupSession(ctx context.Context, sessionID string) (Session, error) {
	if !c.Enabled() {
		return Session{}, domain.ErrPaymentUnavailable
	}
	stripe.Key = strings.TrimSpace(c.cfg.SecretKey)

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	session, err := c.getSession(sessionID, params)
	if err != nil {
		return Session{}, fmt.Errorf("payment.Checkout.LookupSession: %w", err)
	}
	if session == nil {
		return Session{}, fmt.Errorf("payment.Checkout.LookupSession %s: %w", sessionID, domain.ErrNotFound)
	}
	return Session{
		ID:     session.ID,
		UserID: session.ClientReferenceID,
		Paid:   isPaid(string(session.Status), string(session.PaymentStatus)),
	}, nil
}

// isPaid treats a complete session as paid unless Stripe still reports the
// payment as pending.
func isPaid(status, paymentStatus string) bool {
	if status != "" && status != string(stripe.CheckoutSessionStatusComplete) {
		return false
	}
	return paymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid) ||
		paymentStatus == string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired)
}
