package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/care-portal/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
	RecordGateDecision(ctx context.Context, decision string)
}

// Middleware verifies a Bearer token when one is sent and injects the Principal.
// Requests without an Authorization header pass through untouched so cookie
// sessions keep working.
func Middleware(ver *Verifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil)
}

// MiddlewareWithMetrics verifies tokens with metrics recording
func MiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				span.SetStatus(codes.Error, "invalid authorization header")
				span.SetAttributes(attribute.String("error.type", "invalid_header_format"))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, "invalid_header_format")
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "invalid authorization header"})
				return
			}

			pr, err := ver.ParseAndVerifyToken(parts[1])
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("token validation failed")
				span.SetStatus(codes.Error, "token validation failed")
				span.SetAttributes(
					attribute.String("error.type", "invalid_token"),
					attribute.String("error.message", err.Error()),
				)
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, "invalid_token")
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "invalid token"})
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.String("user.role", string(pr.Role)),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, pr)))
		})
	}
}

// RequireRoles gates a route on the session identity. An empty role list
// admits any signed-in user.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return RequireRolesWithMetrics(nil, roles...)
}

// RequireRolesWithMetrics is RequireRoles with gate decisions recorded.
func RequireRolesWithMetrics(metrics MetricsRecorder, roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Gate",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.StringSlice("gate.roles", roleStrings(roles))),
			)
			defer span.End()

			var (
				identity *Identity
				loading  bool
			)
			if s, ok := SessionFromContext(ctx); ok {
				identity, loading = s.Current()
			}

			d := Decide(loading, identity, roles)
			span.SetAttributes(attribute.String("gate.decision", d.String()))
			if identity != nil {
				span.SetAttributes(
					attribute.String("user.id", identity.ID),
					attribute.String("user.role", string(identity.Role)),
				)
			}
			if metrics != nil {
				metrics.RecordGateDecision(ctx, d.String())
			}

			if d != DecisionGranted {
				span.SetStatus(codes.Error, d.String())
				RenderDecision(w, r, d)
				return
			}
			span.SetStatus(codes.Ok, "granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on every role that holds per in perms.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil)
}

// RequirePermissionWithMetrics returns middleware with metrics recording
func RequirePermissionWithMetrics(per string, perms Permissions, metrics MetricsRecorder) func(http.Handler) http.Handler {
	roles := perms.RolesWith(per)
	if len(roles) == 0 {
		// nobody holds it; an empty list would otherwise admit everyone
		roles = []Role{Role("none:" + per)}
	}
	return RequireRolesWithMetrics(metrics, roles...)
}

// RenderDecision writes the HTTP form of a non-granted gate decision.
func RenderDecision(w http.ResponseWriter, r *http.Request, d Decision) {
	switch d {
	case DecisionPending:
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusAccepted, map[string]string{"state": "pending"})
	case DecisionDeniedUnauthenticated:
		http.Redirect(w, r, LoginRedirect(r.URL), http.StatusSeeOther)
	case DecisionDeniedWrongRole:
		http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
	}
}

func roleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
