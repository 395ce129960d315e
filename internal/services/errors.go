// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ErrorCode classifies service failures so handlers can map them to user
// facing messages without inspecting storage errors.
type ErrorCode string

const (
	ErrCodeValidation          ErrorCode = "VALIDATION"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeNotEligible         ErrorCode = "NOT_ELIGIBLE"
	ErrCodeTreeNotInvestable   ErrorCode = "TREE_NOT_INVESTABLE"
	ErrCodeAmountBelowMinimum  ErrorCode = "AMOUNT_BELOW_MINIMUM"
	ErrCodeAmountAboveMaximum  ErrorCode = "AMOUNT_ABOVE_MAXIMUM"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeNotCancellable      ErrorCode = "NOT_CANCELLABLE"
	ErrCodeFraudBlocked        ErrorCode = "FRAUD_BLOCKED"
	ErrCodeExternalUnavailable ErrorCode = "EXTERNAL_UNAVAILABLE"
	ErrCodeImmutableRecord     ErrorCode = "IMMUTABLE_RECORD"
	ErrCodeAlreadyProcessed    ErrorCode = "ALREADY_PROCESSED"
	ErrCodeInternal            ErrorCode = "INTERNAL"
)

// AppError carries a taxonomy code alongside the human-readable message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely retry the whole operation.
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeExternalUnavailable
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func WrapAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from an error chain. Errors that carry
// no AppError classify as INTERNAL.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
