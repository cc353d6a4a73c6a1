package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
	"github.com/taskdesk/taskdesk/internal/users"
)

// IdentityStore is the credential store the authenticator works against.
type IdentityStore interface {
	CreateWithProfile(ctx context.Context, identity users.Identity, profile users.Profile) error
	ByUsername(ctx context.Context, username string) (users.Identity, error)
	ByID(ctx context.Context, id string) (users.Identity, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// RoleLookup resolves the role given to new identities.
type RoleLookup interface {
	FindRoleByName(ctx context.Context, name string) (roles.Role, error)
}

// ResetGuard marks reset token ids as spent.
type ResetGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	store       IdentityStore
	roles       RoleLookup
	tokens      *Tokens
	resets      ResetGuard
	defaultRole string
	newID       func() string
	logins      *AttemptLimiter
	answers     *AttemptLimiter
}

// NewService constructs a new Service.
func NewService(store IdentityStore, roleLookup RoleLookup, tokens *Tokens, resets ResetGuard, defaultRole string) *Service {
	return &Service{
		store:       store,
		roles:       roleLookup,
		tokens:      tokens,
		resets:      resets,
		defaultRole: roles.NormalizeName(defaultRole),
		newID:       uuid.NewString,
		logins:      NewAttemptLimiter(30*time.Second, 10),
		answers:     NewAttemptLimiter(time.Minute, 5),
	}
}

// Register creates an identity with the default role and an empty profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	username := users.NormalizeUsername(in.Username)
	email := users.NormalizeEmail(in.Email)
	question := strings.TrimSpace(in.SecurityQuestion)
	switch {
	case username == "":
		return "", fmt.Errorf("%w: username is required", shared.ErrValidation)
	case email == "":
		return "", fmt.Errorf("%w: email is required", shared.ErrValidation)
	case question == "" || strings.TrimSpace(in.SecurityAnswer) == "":
		return "", fmt.Errorf("%w: security question and answer are required", shared.ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return "", err
	}

	role, err := s.roles.FindRoleByName(ctx, s.defaultRole)
	if err != nil {
		return "", fmt.Errorf("default role %q: %w", s.defaultRole, err)
	}
	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return "", err
	}
	answerHash, err := HashAnswer(in.SecurityAnswer)
	if err != nil {
		return "", err
	}

	identity := users.Identity{
		ID:                 s.newID(),
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		SecurityQuestion:   question,
		SecurityAnswerHash: answerHash,
		RoleID:             role.ID,
	}
	if err := s.store.CreateWithProfile(ctx, identity, users.Profile{IdentityID: identity.ID}); err != nil {
		return "", err
	}
	return identity.ID, nil
}

// Authenticate checks credentials and issues a session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.Identity, Token, error) {
	username = users.NormalizeUsername(username)
	if !s.logins.Allow(username) {
		return users.Identity{}, Token{}, ErrTooManyAttempts
	}
	identity, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return users.Identity{}, Token{}, err
	}
	ok, err := checkPassword(identity.PasswordHash, password)
	if err != nil {
		return users.Identity{}, Token{}, err
	}
	if !ok {
		return users.Identity{}, Token{}, ErrInvalidCredentials
	}
	s.logins.Reset(username)
	token, err := s.tokens.Issue(identity.ID, PurposeSession)
	if err != nil {
		return users.Identity{}, Token{}, err
	}
	return identity, token, nil
}

// ResolveToken maps a session token to its identity id. It does not look
// the role up.
func (s *Service) ResolveToken(_ context.Context, raw string) (string, error) {
	token, err := s.tokens.Verify(raw, PurposeSession)
	if err != nil {
		return "", err
	}
	return token.Subject, nil
}

// BeginPasswordReset returns the security question of username.
func (s *Service) BeginPasswordReset(ctx context.Context, username string) (string, error) {
	identity, err := s.store.ByUsername(ctx, users.NormalizeUsername(username))
	if err != nil {
		return "", err
	}
	return identity.SecurityQuestion, nil
}

// CompletePasswordReset checks the security answer and issues a short-lived
// reset token.
func (s *Service) CompletePasswordReset(ctx context.Context, username, answer string) (Token, error) {
	username = users.NormalizeUsername(username)
	if !s.answers.Allow(username) {
		return Token{}, ErrTooManyAttempts
	}
	identity, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return Token{}, err
	}
	ok, err := checkAnswer(identity.SecurityAnswerHash, answer)
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, ErrWrongAnswer
	}
	s.answers.Reset(username)
	return s.tokens.Issue(identity.ID, PurposePasswordReset)
}

// ConsumeResetToken verifies a reset token and spends it. A second call with
// the same token fails with ErrInvalidToken.
func (s *Service) ConsumeResetToken(ctx context.Context, raw string) (string, error) {
	token, err := s.tokens.Verify(raw, PurposePasswordReset)
	if err != nil {
		return "", err
	}
	ttl := token.ExpiresAt.Sub(s.tokens.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	claimed, err := s.resets.Claim(ctx, token.ID, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: reset token state: %v", shared.ErrUnavailable, err)
	}
	if !claimed {
		return "", ErrInvalidToken
	}
	return token.Subject, nil
}

// SetNewPassword re-hashes and stores the password of identityID.
func (s *Service) SetNewPassword(ctx context.Context, identityID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, identityID, hash)
}
