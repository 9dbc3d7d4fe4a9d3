package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
	"github.com/WailSalutem-Health-Care/care-portal/internal/testutil"
)

type managerFixture struct {
	provider *testutil.MockProvider
	profiles *memProfiles
	cache    *cache.MemoryCache
	manager  *Manager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		provider: testutil.NewMockProvider(),
		profiles: newMemProfiles(),
		cache:    cache.NewMemoryCache(),
	}
	f.manager = NewManager(f.cache, f.provider, f.profiles, nil, nil, Options{})
	t.Cleanup(func() {
		f.manager.Close()
		f.cache.Close()
	})
	return f
}

// signIn logs a patient in on a fresh registered store.
func (f *managerFixture) signIn(t *testing.T, role auth.Role) *Store {
	t.Helper()
	id := f.provider.AddUser("user@example.com", "secret123", "User", role)
	f.profiles.add(id, "User", "user@example.com", role)

	s := f.manager.Ephemeral()
	if !s.Login(context.Background(), flash.NewRecorder(), "user@example.com", "secret123", role) {
		t.Fatal("Expected login to succeed")
	}
	f.manager.Register(context.Background(), httptest.NewRecorder(), s)
	return s
}

// TestManager_OpenFromSnapshot tests that an evicted session is restored from the cache
func TestManager_OpenFromSnapshot(t *testing.T) {
	f := newManagerFixture(t)
	s := f.signIn(t, auth.RolePatient)

	if n := f.manager.Sweep(time.Now().Add(time.Minute)); n != 1 {
		t.Fatalf("Expected one eviction, got %d", n)
	}
	if f.manager.Len() != 0 {
		t.Fatalf("Expected empty registry, got %d", f.manager.Len())
	}

	restored, ok := f.manager.Open(context.Background(), s.ID())
	if !ok {
		t.Fatal("Expected cached session to open")
	}
	if restored == s {
		t.Error("Expected a new store instance")
	}
	user, loading := restored.Current()
	if loading || user == nil || user.Role != auth.RolePatient {
		t.Errorf("Unexpected restored session %+v loading=%v", user, loading)
	}

	again, _ := f.manager.Open(context.Background(), s.ID())
	if again != restored {
		t.Error("Expected live store to be reused")
	}
}

// TestManager_OpenUnknown tests that unknown ids are not opened
func TestManager_OpenUnknown(t *testing.T) {
	f := newManagerFixture(t)
	if _, ok := f.manager.Open(context.Background(), "missing"); ok {
		t.Error("Expected unknown session id to be rejected")
	}
}

// TestManager_LogoutDropsSnapshot tests that signing out removes the cached snapshot
func TestManager_LogoutDropsSnapshot(t *testing.T) {
	f := newManagerFixture(t)
	s := f.signIn(t, auth.RolePatient)

	key := snapshotKey(s.ID())
	if ok, _ := f.cache.Exists(context.Background(), key); !ok {
		t.Fatal("Expected snapshot after sign-in")
	}

	s.Logout(context.Background(), flash.NewRecorder())
	if ok, _ := f.cache.Exists(context.Background(), key); ok {
		t.Error("Expected snapshot to be removed after logout")
	}
}

// TestManager_RestoreFailureSignsOut tests that a revoked refresh token ends the session
func TestManager_RestoreFailureSignsOut(t *testing.T) {
	f := newManagerFixture(t)
	s := f.signIn(t, auth.RolePatient)
	tokens := s.Tokens()

	expired := Snapshot{Identity: &auth.Identity{ID: "x"}, Tokens: &Tokens{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, ExpiresAt: time.Now().Add(-time.Second),
	}}
	snapID := "stale"
	if err := cache.SetJSON(context.Background(), f.cache, snapshotKey(snapID), expired, time.Hour); err != nil {
		t.Fatal(err)
	}
	f.provider.Revoke(tokens.RefreshToken)

	restored, ok := f.manager.Open(context.Background(), snapID)
	if !ok {
		t.Fatal("Expected store to be returned")
	}
	if user, loading := restored.Current(); user != nil || loading {
		t.Errorf("Expected signed-out session, got %+v", user)
	}
	if ok, _ := f.cache.Exists(context.Background(), snapshotKey(snapID)); ok {
		t.Error("Expected stale snapshot to be deleted")
	}
}

// TestManager_SignedInRotatesSession tests that signing in never keeps the pre-login id
func TestManager_SignedInRotatesSession(t *testing.T) {
	var destroyed []string
	f := newManagerFixture(t)
	f.manager.opts.OnDestroy = func(ctx context.Context, sessionID string) {
		destroyed = append(destroyed, sessionID)
	}
	ctx := context.Background()

	first := f.signIn(t, auth.RolePatient)
	if !first.Login(ctx, flash.NewRecorder(), "user@example.com", "secret123", auth.RolePatient) {
		t.Fatal("Expected second login to succeed")
	}
	w := httptest.NewRecorder()
	rotated := f.manager.SignedIn(ctx, w, first)

	if rotated.ID() == first.ID() {
		t.Fatal("Expected a new session id")
	}
	if user, _ := rotated.Current(); user == nil || user.Role != auth.RolePatient {
		t.Errorf("Expected identity on the new session, got %+v", user)
	}
	if user, _ := first.Current(); user != nil {
		t.Errorf("Expected old store to be signed out, got %+v", user)
	}
	if _, ok := f.manager.Open(ctx, first.ID()); ok {
		t.Error("Expected old session id to no longer resolve")
	}
	if _, ok := f.manager.Open(ctx, rotated.ID()); !ok {
		t.Error("Expected new session id to resolve")
	}
	if len(destroyed) != 1 || destroyed[0] != first.ID() {
		t.Errorf("Expected OnDestroy for the old id, got %v", destroyed)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != rotated.ID() {
		t.Errorf("Expected cookie for the new id, got %+v", cookies)
	}
}

// TestMiddleware tests cookie, bearer and anonymous requests
func TestMiddleware(t *testing.T) {
	f := newManagerFixture(t)
	signedIn := f.signIn(t, auth.RoleDoctor)

	var (
		got   *Store
		sid   string
		state auth.SessionState
	)
	inspect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		sid = auth.SessionIDFromContext(r.Context())
		state, _ = auth.SessionFromContext(r.Context())
	})
	handler := auth.Middleware(testutil.NewTestVerifier())(f.manager.Middleware(inspect))

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/doctor", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: signedIn.ID()})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if got != signedIn || sid != signedIn.ID() {
			t.Errorf("Expected cookie session, got %v (%q)", got, sid)
		}
		if state == nil {
			t.Error("Expected session state for gates")
		}
	})

	t.Run("stale cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/doctor", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "gone"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if user, _ := got.Current(); user != nil {
			t.Errorf("Expected anonymous session, got %+v", user)
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
			t.Errorf("Expected cookie to be cleared, got %+v", cookies)
		}
	})

	t.Run("bearer", func(t *testing.T) {
		token := testutil.SignTestToken(t, "api-user", "api@example.com", auth.RoleHospital)
		req := httptest.NewRequest(http.MethodGet, "/hospital", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		user, loading := got.Current()
		if loading || user == nil || user.ID != "api-user" || user.Role != auth.RoleHospital {
			t.Errorf("Expected claims identity, got %+v", user)
		}
		if tok := got.Tokens(); tok == nil || tok.AccessToken != token {
			t.Error("Expected bearer token to be kept")
		}
		if sid != "" {
			t.Errorf("Expected no session id for bearer requests, got %q", sid)
		}
		if got.ID() == "" {
			t.Error("Expected bearer store to carry its own id")
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		before := f.manager.Len()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if user, loading := got.Current(); user != nil || loading {
			t.Errorf("Expected signed-out settled session, got %+v", user)
		}
		if f.manager.Len() != before {
			t.Error("Expected anonymous store not to be registered")
		}
	})
}
