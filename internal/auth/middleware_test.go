package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type recordingMetrics struct {
	failures  []string
	decisions []string
}

func (m *recordingMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.failures = append(m.failures, reason)
}

func (m *recordingMetrics) RecordGateDecision(ctx context.Context, decision string) {
	m.decisions = append(m.decisions, decision)
}

// TestMiddleware_ValidToken tests that a valid token injects the principal
func TestMiddleware_ValidToken(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	tokenString := signRS256(t, privateKey, jwt.MapClaims{
		"sub":           "user-123",
		"iss":           testIssuer,
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{"role": "patient"},
	})

	called := false
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("Expected principal in context, got none")
			return
		}
		if principal.UserID != "user-123" {
			t.Errorf("Expected UserID 'user-123', got '%s'", principal.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

// TestMiddleware_MissingAuthorizationHeader tests that cookie-only requests pass through
func TestMiddleware_MissingAuthorizationHeader(t *testing.T) {
	verifier := NewVerifier(Config{Issuer: testIssuer}, nil)

	called := false
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := PrincipalFromContext(r.Context()); ok {
			t.Error("Expected no principal")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	if !called {
		t.Error("Expected handler to be called")
	}
}

// TestMiddleware_InvalidAuthorizationHeader tests malformed headers
func TestMiddleware_InvalidAuthorizationHeader(t *testing.T) {
	verifier := NewVerifier(Config{Issuer: testIssuer}, nil)
	metrics := &recordingMetrics{}

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MiddlewareWithMetrics(verifier, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("Handler should not be called")
			}))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
	if len(metrics.failures) != 2 || metrics.failures[0] != "invalid_header_format" {
		t.Errorf("Expected two invalid_header_format failures, got %v", metrics.failures)
	}
}

// TestMiddleware_InvalidToken tests that an unverifiable token returns 401
func TestMiddleware_InvalidToken(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.here")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

// TestPrincipalFromContext tests principal round trip through the context
func TestPrincipalFromContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Error("Expected no principal in empty context")
	}
	pr := &Principal{UserID: "u1", Role: RoleHospital}
	got, ok := PrincipalFromContext(ContextWithPrincipal(context.Background(), pr))
	if !ok || got.UserID != "u1" {
		t.Errorf("Expected principal u1, got %+v", got)
	}
}

// TestIdentityFromContext tests that loading sessions expose no identity
func TestIdentityFromContext(t *testing.T) {
	id := &Identity{ID: "p1", Role: RolePatient}

	ctx := ContextWithSession(context.Background(), StaticSession{Identity: id, Loading: true})
	if _, ok := IdentityFromContext(ctx); ok {
		t.Error("Expected no identity while loading")
	}

	ctx = ContextWithSession(context.Background(), StaticSession{Identity: id})
	got, ok := IdentityFromContext(ctx)
	if !ok || got.ID != "p1" {
		t.Errorf("Expected identity p1, got %+v", got)
	}
}

// TestRequirePermission tests permission gating through the session identity
func TestRequirePermission(t *testing.T) {
	perms := Permissions{
		"HOSPITAL": {"doctor:register"},
		"DOCTOR":   {"appointment:update"},
	}
	metrics := &recordingMetrics{}

	tests := []struct {
		name       string
		permission string
		role       Role
		wantStatus int
	}{
		{"hospital registers doctor", "doctor:register", RoleHospital, http.StatusOK},
		{"patient cannot register doctor", "doctor:register", RolePatient, http.StatusSeeOther},
		{"unheld permission denies everyone", "system:admin", RoleHospital, http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePermissionWithMetrics(tt.permission, perms, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			req = req.WithContext(ContextWithSession(req.Context(), StaticSession{Identity: &Identity{ID: "u", Role: tt.role}}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusSeeOther && rec.Header().Get("Location") != UnauthorizedPath {
				t.Errorf("Expected redirect to %s, got %s", UnauthorizedPath, rec.Header().Get("Location"))
			}
		})
	}
	if len(metrics.decisions) != 3 || metrics.decisions[0] != "granted" {
		t.Errorf("Expected three recorded decisions, got %v", metrics.decisions)
	}
}
