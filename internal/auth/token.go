package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskdesk/taskdesk/internal/ids"
)

type claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenConfig configures token signing.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokens validates cfg and returns a token codec.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 bytes")
	}
	if cfg.SessionTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &Tokens{cfg: cfg, now: time.Now}, nil
}

func (t *Tokens) ttl(p Purpose) time.Duration {
	if p == PurposePasswordReset {
		return t.cfg.ResetTTL
	}
	return t.cfg.SessionTTL
}

// Issue signs a token for subject with the lifetime of purpose.
func (t *Tokens) Issue(subject string, purpose Purpose) (Token, error) {
	now := t.now().UTC()
	expires := now.Add(t.ttl(purpose))
	jti := ids.NewAt(now)
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{Value: signed, ID: jti, Subject: subject, ExpiresAt: expires}, nil
}

// Verify checks signature, algorithm, issuer, expiry and purpose.
func (t *Tokens) Verify(raw string, purpose Purpose) (Token, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Token{}, ErrInvalidToken
	}
	if c.Purpose != purpose || c.Subject == "" || c.ID == "" {
		return Token{}, ErrInvalidToken
	}
	return Token{Value: raw, ID: c.ID, Subject: c.Subject, ExpiresAt: c.ExpiresAt.Time}, nil
}
