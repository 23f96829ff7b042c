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
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserSuspended      = "auth.user_suspended"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthAccessDenied       = "auth.access_denied"

	// Requests
	KeyRequestNotFound          = "request.not_found"
	KeyRequestSubmitted         = "request.submitted"
	KeyRequestUpdated           = "request.updated"
	KeyRequestClaimed           = "request.claimed"
	KeyRequestReleased          = "request.released"
	KeyRequestAlreadyLocked     = "request.already_locked"
	KeyRequestInvalidTransition = "request.invalid_transition"
	KeyRequestNoteRequired      = "request.note_required"
	KeyRequestDocumentNotFound  = "request.document_not_found"

	// Invoices
	KeyInvoiceNotFound       = "invoice.not_found"
	KeyPaymentSuccess        = "payment.success"
	KeyPaymentFailed         = "payment.failed"
	KeyPaymentPending        = "payment.pending"
	KeyPaymentNotConfigured  = "payment.not_configured"
	KeyPaymentReceiptMissing = "payment.receipt_required"

	// Notifications
	KeyNotificationNotFound  = "notification.not_found"
	KeyNotificationRead      = "notification.read"
	KeyNotificationsAllRead  = "notification.all_read"
	KeyNotificationEmailSubj = "notification.email_subject"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooShort = "validation.too_short"
	KeyValidationTooLong  = "validation.too_long"
	KeyValidationEmail    = "validation.invalid_email"

	// Rate limiting
	KeyRateLimited = "rate_limit.exceeded"
)
