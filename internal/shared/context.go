package shared

import "context"

// AuthenticatedContext is the immutable view of the caller produced by the
// authentication pipeline. Handlers read it, never mutate it.
type AuthenticatedContext struct {
	IdentityID string
	RoleID     string
	RoleName   string
}

type authContextKey struct{}

// ContextWithAuth stores the authenticated caller in ctx.
func ContextWithAuth(ctx context.Context, ac AuthenticatedContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthFromContext extracts the authenticated caller from ctx.
func AuthFromContext(ctx context.Context) (AuthenticatedContext, bool) {
	if ctx == nil {
		return AuthenticatedContext{}, false
	}
	ac, ok := ctx.Value(authContextKey{}).(AuthenticatedContext)
	if !ok || ac.IdentityID == "" {
		return AuthenticatedContext{}, false
	}
	return ac, true
}
