// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserNotFound       = "auth.user_not_found"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// User Management
	KeyUserNotFound            = "user.not_found"
	KeyUserSuspended           = "user.suspended"
	KeyUserNotEligible         = "user.not_eligible"
	KeyUserVerificationPending = "user.verification_pending"

	// Trees
	KeyTreeNotFound      = "tree.not_found"
	KeyTreeNotInvestable = "tree.not_investable"

	// Investments
	KeyInvestmentCreated        = "investment.created"
	KeyInvestmentConfirmed      = "investment.confirmed"
	KeyInvestmentCancelled      = "investment.cancelled"
	KeyInvestmentNotFound       = "investment.not_found"
	KeyInvestmentNotCancellable = "investment.not_cancellable"
	KeyInvestmentToppedUp       = "investment.topped_up"
	KeyInvestmentBelowMinimum   = "investment.amount_below_minimum"
	KeyInvestmentAboveMaximum   = "investment.amount_above_maximum"

	// Payments
	KeyPaymentSuccess     = "payment.success"
	KeyPaymentFailed      = "payment.failed"
	KeyPaymentPending     = "payment.pending"
	KeyPaymentUnavailable = "payment.unavailable"
	KeyPaymentBlocked     = "payment.blocked"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"
	KeyAdminAlertResolved = "admin.alert_resolved"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooShort = "validation.too_short"
	KeyValidationTooLong  = "validation.too_long"
	KeyValidationEmail    = "validation.invalid_email"
	KeyValidationPassword = "validation.invalid_password"

	// Notifications
	KeyNotificationSent   = "notification.sent"
	KeyNotificationFailed = "notification.failed"
)
