package shared

import "errors"

// Error taxonomy shared by every feature package. Feature errors wrap one of
// these with %w so the HTTP layer can translate them with errors.Is.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates a bad, expired or missing token or credential.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates an authenticated caller without the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or referential-integrity violation.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited indicates too many attempts against one account.
	ErrRateLimited = errors.New("too many attempts")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)
