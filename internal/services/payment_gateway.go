// internal/services/payment_gateway.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/arborvest/arbor-backend/internal/config"
)

// ChargeRequest describes a charge to create at the payment processor.
// Amount is in minor currency units.
type ChargeRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Charge is the processor's view of a created charge. ID is the external
// charge reference stored on the local Transaction.
type Charge struct {
	ID           string
	ClientSecret string
	Status       string
}

// PaymentGateway wraps the external payment processor. Implementations must
// surface transient failures (timeouts, 5xx) as EXTERNAL_UNAVAILABLE so
// callers can distinguish "retry" from "definitely failed".
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req *ChargeRequest) (*Charge, error)
	GetChargeStatus(ctx context.Context, chargeID string) (string, error)
	CancelCharge(ctx context.Context, chargeID string) error
}

// StripeGateway implements PaymentGateway on Stripe PaymentIntents.
type StripeGateway struct {
	timeout time.Duration
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &StripeGateway{
		timeout: time.Duration(cfg.Payment.GatewayTimeout) * time.Second,
	}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, req *ChargeRequest) (*Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, translateStripeError("create charge", err)
	}

	return &Charge{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) GetChargeStatus(ctx context.Context, chargeID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(chargeID, params)
	if err != nil {
		return "", translateStripeError("get charge status", err)
	}

	return string(pi.Status), nil
}

func (g *StripeGateway) CancelCharge(ctx context.Context, chargeID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(chargeID, params); err != nil {
		return translateStripeError("cancel charge", err)
	}

	return nil
}

// translateStripeError folds Stripe failures into the error taxonomy.
// Timeouts and server-side errors are retryable; everything else is a
// definite failure reported as-is.
func translateStripeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapAppError(ErrCodeExternalUnavailable, fmt.Sprintf("payment gateway timed out during %s", op), err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.Type == stripe.ErrorTypeAPI {
			return WrapAppError(ErrCodeExternalUnavailable, fmt.Sprintf("payment gateway unavailable during %s", op), err)
		}
		return WrapAppError(ErrCodeValidation, fmt.Sprintf("payment gateway rejected %s", op), err)
	}

	return WrapAppError(ErrCodeExternalUnavailable, fmt.Sprintf("payment gateway error during %s", op), err)
}
