package domain

import "errors"

// Generation errors
var (
	// ErrGenerationTimeout indicates the text-generation provider did not
	// answer within its deadline; generation falls back to the template.
	ErrGenerationTimeout = errors.New("generation provider timed out")

	// ErrGenerationProvider indicates the text-generation provider failed;
	// generation falls back to the template.
	ErrGenerationProvider = errors.New("generation provider failed")
)

// Delivery errors
var (
	// ErrSendFailed indicates the email provider rejected or failed the send.
	// The delivery record moves to failed; retry waits for the next sweep.
	ErrSendFailed = errors.New("email send failed")

	// ErrDraftNotFound indicates the requested draft does not exist.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrDeliveryNotFound indicates no delivery record matches the lookup.
	ErrDeliveryNotFound = errors.New("delivery record not found")
)

// Webhook errors
var (
	// ErrSignatureInvalid indicates the webhook payload failed HMAC
	// verification. The event is rejected before any field is trusted.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
)
