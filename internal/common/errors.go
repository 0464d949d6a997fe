package common

import "errors"

// Callers should use errors.Is to match these values.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Missing or malformed secrets (cipher key, provider credentials).
	ErrorConfiguration = errors.New("configuration error")

	// Token ciphertext could not be decoded or failed padding validation.
	ErrorDecryption = errors.New("decryption error")

	// Provider answered with a non-success status or an unusable body.
	ErrorUpstream = errors.New("upstream error")

	// Auth errors (invalid or malformed state token).
	ErrInvalidToken = errors.New("invalid token")

	// Another batch run is already in progress in this process.
	ErrorJobRunning = errors.New("scheduler run already in progress")
)
