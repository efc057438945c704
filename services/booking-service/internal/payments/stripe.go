package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type StripeConfig struct {
	SecretKey   string
	FrontendURL string
	// Backends overrides the Stripe API endpoint; nil uses api.stripe.com.
	Backends *stripe.Backends
}

type StripeProvider struct {
	api         *client.API
	frontendURL string
}

// NewProvider returns a Stripe provider, or Disabled when no secret key is set.
func NewProvider(cfg StripeConfig) Provider {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return Disabled{}
	}
	return NewStripeProvider(cfg)
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	return &StripeProvider{
		api:         client.New(cfg.SecretKey, cfg.Backends),
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

func (p *StripeProvider) Configured() bool { return true }

// CreateCheckout opens a one-off payment session for the deposit. The
// appointment id rides on both the session and its payment intent so either
// webhook can find the booking again.
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	metadata := map[string]string{
		"appointment_id": req.AppointmentID,
		"business_id":    req.BusinessID,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.returnURL("payment-success", req.AppointmentID)),
		CancelURL:  stripe.String(p.returnURL("payment-cancel", req.AppointmentID)),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:     stripe.String(req.ProductName),
						Metadata: map[string]string{"appointment_id": req.AppointmentID},
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("checkout-" + req.AppointmentID)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, fmt.Errorf("payments: create checkout session: %w", err)
	}
	return Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) returnURL(page, appointmentID string) string {
	return p.frontendURL + "/" + page + "?appointment_id=" + url.QueryEscape(appointmentID)
}
