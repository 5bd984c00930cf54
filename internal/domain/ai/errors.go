package ai

import "errors"

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrTimeout covers deadline expiry and cancellation of the analyzer call.
	ErrTimeout = errors.New("ai request timed out or was canceled")

	// ErrMalformedOutput means the model answered but not with the expected JSON shape.
	ErrMalformedOutput = errors.New("ai returned malformed output")

	// ErrNotConfigured means no usable credentials or endpoint were configured.
	ErrNotConfigured = errors.New("ai provider not configured")
)
