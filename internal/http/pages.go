package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type landing struct {
	Service   string            `json:"service"`
	User      *auth.Identity    `json:"user,omitempty"`
	Dashboard string            `json:"dashboard,omitempty"`
	Links     map[string]string `json:"links"`
}

func landingPage(w http.ResponseWriter, r *http.Request) {
	page := landing{
		Service: "care-portal",
		Links: map[string]string{
			"login":    auth.LoginPath,
			"register": "/register",
		},
	}
	if user, ok := auth.IdentityFromContext(r.Context()); ok {
		page.User = user
		page.Dashboard = auth.DashboardPath(user.Role)
	}
	respondJSON(w, http.StatusOK, page)
}

func unauthorizedPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusForbidden, map[string]interface{}{
		"error":   "access_denied",
		"message": "You don't have permission to access this page. Please log in with the appropriate account or contact support.",
		"links": map[string]string{
			"home":  "/",
			"login": auth.LoginPath,
		},
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "care-portal"})
}

// ready reports 503 while any dependency fails its ping.
func ready(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		status := http.StatusOK
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		respondJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
