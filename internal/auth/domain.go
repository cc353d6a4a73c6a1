package auth

import (
	"fmt"
	"time"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// MaxPasswordLength is the longest input bcrypt accepts, in bytes.
const MaxPasswordLength = 72

var (
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	// ErrInvalidToken is returned for bad, expired, replayed or mis-purposed tokens.
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", shared.ErrUnauthenticated)
	// ErrWeakPassword is returned when a password is too short.
	ErrWeakPassword = fmt.Errorf("%w: password must be at least %d characters", shared.ErrValidation, MinPasswordLength)
	// ErrPasswordTooLong is returned when a password or answer exceeds MaxPasswordLength bytes.
	ErrPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", shared.ErrValidation, MaxPasswordLength)
	// ErrMissingPassword is returned when no new password is supplied.
	ErrMissingPassword = fmt.Errorf("%w: password is required", shared.ErrValidation)
	// ErrWrongAnswer is returned when the security answer does not match.
	ErrWrongAnswer = fmt.Errorf("%w: security answer is incorrect", shared.ErrValidation)
)

// Purpose distinguishes session tokens from password reset tokens.
type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposePasswordReset Purpose = "password_reset"
)

// Token is a signed bearer token.
type Token struct {
	Value     string    `json:"token"`
	ID        string    `json:"-"`
	Subject   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username         string
	Email            string
	Password         string
	SecurityQuestion string
	SecurityAnswer   string
}
