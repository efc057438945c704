package payments

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("payments: provider not configured")

type CheckoutRequest struct {
	AppointmentID string
	BusinessID    string
	ProductName   string
	Currency      string
	AmountCents   int64
}

type Checkout struct {
	SessionID string
	URL       string
}

// Provider creates hosted payment pages for the amount due at booking time.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error)
	Configured() bool
}

// Disabled is the provider used when no payment credentials are configured.
// Bookings still succeed; they just carry no checkout link.
type Disabled struct{}

func (Disabled) CreateCheckout(context.Context, CheckoutRequest) (Checkout, error) {
	return Checkout{}, ErrNotConfigured
}

func (Disabled) Configured() bool { return false }
