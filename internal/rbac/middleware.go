package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// TokenResolver maps a bearer token to an identity id.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// RoleResolver loads the current role of an identity.
type RoleResolver interface {
	RoleForIdentity(ctx context.Context, identityID string) (roles.Role, error)
}

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	ObserveDecision(outcome, reason string)
}

// Middleware wires authentication and authorization for HTTP handlers.
type Middleware struct {
	Tokens  TokenResolver
	Roles   RoleResolver
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Authenticate rejects requests without a valid session token and attaches
// the identity id to the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := httpx.BearerToken(r)
		if err != nil {
			httpx.Message(w, http.StatusUnauthorized, err.Error())
			return
		}
		identityID, err := m.Tokens.ResolveToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrUnauthenticated) {
				httpx.Message(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			httpx.RespondError(w, m.Logger, err)
			return
		}
		ctx := shared.ContextWithAuth(r.Context(), shared.AuthenticatedContext{IdentityID: identityID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require loads the caller's role and enforces req. targetParam names the
// chi URL parameter holding the identity the route acts on; it may be empty.
// Must run after Authenticate.
func (m Middleware) Require(req Requirement, targetParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := shared.AuthFromContext(r.Context())
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, "authentication required")
				return
			}
			role, err := m.Roles.RoleForIdentity(r.Context(), ac.IdentityID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					httpx.Message(w, http.StatusUnauthorized, "identity no longer exists")
					return
				}
				httpx.RespondError(w, m.Logger, err)
				return
			}

			var targetID string
			if targetParam != "" {
				targetID = chi.URLParam(r, targetParam)
			}
			decision := Authorize(Caller{IdentityID: ac.IdentityID, Role: role}, req, targetID)
			if m.Metrics != nil {
				m.Metrics.ObserveDecision(decision.Outcome(), string(decision.Reason))
			}
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied",
						slog.String("identity_id", ac.IdentityID),
						slog.String("role", role.Name),
						slog.String("capability", req.Capability.String()),
						slog.String("reason", string(decision.Reason)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, m.Logger, decision.Err())
				return
			}

			ac.RoleID = role.ID
			ac.RoleName = role.Name
			next.ServeHTTP(w, r.WithContext(shared.ContextWithAuth(r.Context(), ac)))
		})
	}
}
