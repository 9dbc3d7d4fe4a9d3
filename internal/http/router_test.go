package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/booking"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/dashboard"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
	"github.com/WailSalutem-Health-Care/care-portal/internal/session"
	"github.com/WailSalutem-Health-Care/care-portal/internal/survey"
	"github.com/WailSalutem-Health-Care/care-portal/internal/telemetry"
	"github.com/WailSalutem-Health-Care/care-portal/internal/testutil"
)

type noProfiles struct{}

func (noProfiles) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	return nil, profile.ErrProfileNotFound
}

func (noProfiles) CreateProfile(ctx context.Context, p profile.Profile) (*profile.Profile, error) {
	return &p, nil
}

var testPermissions = auth.Permissions{
	"PATIENT":  {"appointment:book"},
	"DOCTOR":   {"medicine:prescribe", "appointment:update"},
	"HOSPITAL": {"doctor:register", "appointment:update"},
}

// newTestRouter builds the full router. Domain services are left nil; the
// requests below never get past the gates into them.
func newTestRouter(t *testing.T, ready map[string]Pinger) (http.Handler, *telemetry.Prometheus) {
	t.Helper()
	mem := cache.NewMemoryCache()
	manager := session.NewManager(mem, testutil.NewMockProvider(), noProfiles{}, nil, nil, session.Options{})
	t.Cleanup(func() {
		manager.Close()
		mem.Close()
	})

	prom := telemetry.NewPrometheus()
	handlers := Handlers{
		Session:     session.NewHandler(manager, "http://portal.test"),
		Booking:     booking.NewHandler(nil),
		Dashboard:   dashboard.NewHandler(nil),
		Survey:      survey.NewHandler(nil),
		Directory:   directory.NewHandler(nil),
		Medication:  medication.NewHandler(nil),
		Appointment: appointment.NewHandler(nil),
	}
	router := SetupRouter(handlers, Options{
		Verifier:       testutil.NewTestVerifier(),
		Sessions:       manager,
		Permissions:    testPermissions,
		Prometheus:     prom,
		AllowedOrigins: []string{"http://localhost:3000"},
		Ready:          ready,
	})
	return router, prom
}

func bearer(t *testing.T, role auth.Role) string {
	return "Bearer " + testutil.SignTestToken(t, "user-1", "user@example.com", role)
}

// TestRouter_Gates tests role and permission gates on page routes
func TestRouter_Gates(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		name         string
		method       string
		path         string
		role         auth.Role
		wantStatus   int
		wantLocation string
	}{
		{"anonymous dashboard", http.MethodGet, "/patient", "", http.StatusSeeOther, "/login?return=%2Fpatient"},
		{"wrong role dashboard", http.MethodGet, "/patient", auth.RoleDoctor, http.StatusSeeOther, "/unauthorized"},
		{"anonymous wizard", http.MethodGet, "/book-appointment", "", http.StatusSeeOther, "/login?return=%2Fbook-appointment"},
		{"wrong role wizard step", http.MethodPost, "/book-appointment/next", auth.RoleCaretaker, http.StatusSeeOther, "/unauthorized"},
		{"wrong role survey", http.MethodGet, "/surveys/new", auth.RoleHospital, http.StatusSeeOther, "/unauthorized"},
		{"permission prescribe", http.MethodPost, "/doctor/medicines", auth.RoleHospital, http.StatusSeeOther, "/unauthorized"},
		{"permission register doctor", http.MethodPost, "/hospital/doctors", auth.RolePatient, http.StatusSeeOther, "/unauthorized"},
		{"permission status update", http.MethodPatch, "/appointments/a1/status", auth.RoleCaretaker, http.StatusSeeOther, "/unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", bearer(t, tt.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if loc := w.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Expected Location %q, got %q", tt.wantLocation, loc)
			}
		})
	}
}

// TestRouter_InvalidBearer tests that a bad token is rejected before any gate
func TestRouter_InvalidBearer(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/doctor", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

// TestRouter_PublicPages tests landing, unauthorized and session pages
func TestRouter_PublicPages(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	t.Run("landing with bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, auth.RoleCaretaker))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var page landing
		json.NewDecoder(w.Body).Decode(&page)
		if w.Code != http.StatusOK || page.Dashboard != "/caretaker" {
			t.Errorf("Unexpected landing %d %+v", w.Code, page)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unauthorized", nil))
		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", w.Code)
		}
	})

	t.Run("session", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user":null`) {
			t.Errorf("Unexpected session response %d %s", w.Code, w.Body.String())
		}
	})
}

// TestRouter_NotFound tests the JSON 404 for unknown paths and methods
func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/nowhere", nil),
		httptest.NewRequest(http.MethodDelete, "/patient", nil),
		httptest.NewRequest(http.MethodGet, "/book-appointment/unknown", nil),
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", req.Method, req.URL.Path, w.Code)
		}
		if strings.TrimSpace(w.Body.String()) != `{"error":"not_found"}` {
			t.Errorf("%s %s: unexpected body %s", req.Method, req.URL.Path, w.Body.String())
		}
	}
}

// TestRouter_HealthChecks tests health, readiness and the metrics scrape
func TestRouter_HealthChecks(t *testing.T) {
	router, _ := newTestRouter(t, map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error { return nil }),
		"cache":    PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from /ready, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"cache":"unavailable"`) {
		t.Errorf("Expected failing cache check, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	if w.Code != http.StatusOK || !strings.Contains(string(body), `care_portal_http_requests_total{method="GET",route="/health",status_code="200"} 1`) {
		t.Errorf("Expected request counter in scrape, got %d", w.Code)
	}
}

// TestRouter_CORSPreflight tests that allowed origins get credentialed CORS headers
func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected credentials to be allowed")
	}
}

// TestRecovery tests that a panic becomes a 500
func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}
