package users

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/taskdesk/taskdesk/internal/shared"
)

var (
	// ErrDuplicateUsername is returned when the username is already registered.
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", shared.ErrConflict)
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = fmt.Errorf("%w: email already exists", shared.ErrConflict)
	// ErrIdentityNotFound is returned when an identity lookup misses.
	ErrIdentityNotFound = fmt.Errorf("%w: user not found", shared.ErrNotFound)
)

// Identity is an account able to authenticate. Hashes never leave the
// service layer.
type Identity struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	SecurityQuestion   string    `json:"-"`
	SecurityAnswerHash string    `json:"-"`
	RoleID             string    `json:"roleId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Profile holds the optional contact details of an identity.
type Profile struct {
	IdentityID  string    `json:"-"`
	DisplayName string    `json:"displayName"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Account is the public view of an identity.
type Account struct {
	Identity
	RoleName string   `json:"roleName"`
	Profile  *Profile `json:"profile,omitempty"`
}

// NormalizeUsername trims and NFC-normalises a username so visually equal
// names compare equal.
func NormalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
