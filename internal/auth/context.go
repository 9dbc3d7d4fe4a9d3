package auth

import "context"

type ctxKey string

const (
	principalKey ctxKey = "auth_principal"
	sessionKey   ctxKey = "auth_session"
	sessionIDKey ctxKey = "auth_session_id"
)

// SessionState is the read side of a session as consumed by the gate.
type SessionState interface {
	// Current returns the identity (nil when signed out) and the loading flag.
	Current() (*Identity, bool)
}

// ContextWithSession attaches the request's session.
func ContextWithSession(ctx context.Context, s SessionState) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session attached by the session middleware.
func SessionFromContext(ctx context.Context) (SessionState, bool) {
	s, ok := ctx.Value(sessionKey).(SessionState)
	return s, ok
}

// ContextWithSessionID records the opaque browser session id.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the browser session id. Token-only requests have none.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// IdentityFromContext returns the signed-in identity, if the session is settled.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, false
	}
	id, loading := s.Current()
	if loading || id == nil {
		return nil, false
	}
	return id, true
}

// ContextWithPrincipal adds a verified token principal to the context.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext extracts the verified token principal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

// StaticSession is a fixed SessionState.
type StaticSession struct {
	Identity *Identity
	Loading  bool
}

func (s StaticSession) Current() (*Identity, bool) {
	return s.Identity, s.Loading
}
