// internal/services/payment_gateway_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
)

func TestTranslateStripeErrorTimeout(t *testing.T) {
	err := translateStripeError("create charge", fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.True(t, IsCode(err, ErrCodeExternalUnavailable))
}

func TestTranslateStripeErrorServerSide(t *testing.T) {
	err := translateStripeError("create charge", &stripe.Error{HTTPStatusCode: 503})
	assert.True(t, IsCode(err, ErrCodeExternalUnavailable))

	err = translateStripeError("create charge", &stripe.Error{Type: stripe.ErrorTypeAPI})
	assert.True(t, IsCode(err, ErrCodeExternalUnavailable))
}

func TestTranslateStripeErrorRejection(t *testing.T) {
	err := translateStripeError("create charge", &stripe.Error{
		Type:           stripe.ErrorTypeCard,
		HTTPStatusCode: 402,
	})
	assert.True(t, IsCode(err, ErrCodeValidation))
}

func TestTranslateStripeErrorUnknown(t *testing.T) {
	err := translateStripeError("cancel charge", errors.New("connection reset"))
	assert.True(t, IsCode(err, ErrCodeExternalUnavailable))
}
