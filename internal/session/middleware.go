package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

type ctxKey struct{}

// FromContext returns the store attached by Middleware.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	return s, ok
}

func withStore(ctx context.Context, s *Store) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, s)
	return auth.ContextWithSession(ctx, s)
}

// Middleware attaches the request's session. A session cookie selects a live
// or cached session. Without one, a verified bearer principal (see
// auth.Middleware) yields a request-scoped session, and anything else gets an
// unregistered signed-out store.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			if s, ok := m.Open(ctx, c.Value); ok {
				ctx = auth.ContextWithSessionID(withStore(ctx, s), s.ID())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			m.ClearCookie(w)
		}

		if pr, ok := auth.PrincipalFromContext(ctx); ok {
			var token string
			if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 {
				token = strings.TrimSpace(parts[1])
			}
			next.ServeHTTP(w, r.WithContext(withStore(ctx, m.FromBearer(ctx, pr, token))))
			return
		}

		next.ServeHTTP(w, r.WithContext(withStore(ctx, m.Ephemeral())))
	})
}
