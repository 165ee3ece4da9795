package auth

import "context"

type principalContextKey struct{}
type tokenContextKey struct{}
type elevationContextKey struct{}

// ContextWithPrincipal attaches the authenticated user to the context.
func ContextWithPrincipal(ctx context.Context, user *User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey{}, user)
}

// PrincipalFromContext extracts the authenticated user from the context.
func PrincipalFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(principalContextKey{}).(*User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

// ContextWithToken stores the raw bearer token inside the context. The
// impersonation response needs it so the client can cache the original
// identity before adopting the target's credential.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithElevation attaches a validated elevated session.
func ContextWithElevation(ctx context.Context, session ElevatedSession) context.Context {
	return context.WithValue(ctx, elevationContextKey{}, session)
}

// ElevationFromContext extracts the validated elevated session.
func ElevationFromContext(ctx context.Context) (ElevatedSession, bool) {
	if ctx == nil {
		return ElevatedSession{}, false
	}
	v, ok := ctx.Value(elevationContextKey{}).(ElevatedSession)
	return v, ok
}
