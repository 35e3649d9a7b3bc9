package common

import "context"

// UserContext holds the resolved caller identity for a request. It is
// populated by the bearer-token middleware (or the X-Blend-User-ID header
// for direct API use) and carried through context.Context.
type UserContext struct {
	UserID string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "default" when no user
// context is present. Used by services and storage operations that need a
// user scope.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return "default"
}
