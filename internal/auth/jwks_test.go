package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// TestNewJWKS_ParsesRSAAndEC tests loading a mixed key set from the provider
func TestNewJWKS_ParsesRSAAndEC(t *testing.T) {
	_, rsaPub := generateTestKeyPair(t)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate EC key: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{
				{"kty": "RSA", "kid": "rsa-1", "n": b64(rsaPub.N.Bytes()), "e": b64(big.NewInt(int64(rsaPub.E)).Bytes())},
				{"kty": "EC", "kid": "ec-1", "crv": "P-256", "x": b64(ecKey.X.Bytes()), "y": b64(ecKey.Y.Bytes())},
				{"kty": "oct", "kid": "ignored"},
			},
		})
	}))
	defer server.Close()

	jwks, err := NewJWKS(context.Background(), server.URL, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer jwks.Close()

	key, err := jwks.Get("rsa-1")
	if err != nil {
		t.Fatalf("Expected RSA key, got: %v", err)
	}
	if got, ok := key.(*rsa.PublicKey); !ok || got.N.Cmp(rsaPub.N) != 0 || got.E != rsaPub.E {
		t.Error("RSA key does not match")
	}

	key, err = jwks.Get("ec-1")
	if err != nil {
		t.Fatalf("Expected EC key, got: %v", err)
	}
	if got, ok := key.(*ecdsa.PublicKey); !ok || got.X.Cmp(ecKey.X) != 0 {
		t.Error("EC key does not match")
	}

	if _, err := jwks.Get("ignored"); err != ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound for oct key, got %v", err)
	}
}

// TestJWKS_MissRefreshIsThrottled tests that unknown kids do not hammer the provider
func TestJWKS_MissRefreshIsThrottled(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"keys":[]}`))
	}))
	defer server.Close()

	jwks, err := NewJWKS(context.Background(), server.URL, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer jwks.Close()

	for i := 0; i < 5; i++ {
		if _, err := jwks.Get("unknown"); err != ErrKeyNotFound {
			t.Fatalf("Expected ErrKeyNotFound, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected only the initial fetch, got %d", got)
	}
}

// TestNewJWKS_BadStatus tests that a failing key endpoint fails startup
func TestNewJWKS_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewJWKS(context.Background(), server.URL, time.Hour); err == nil {
		t.Error("Expected error for 503 key endpoint")
	}
}

// TestVerifier_ParseAndVerifyToken_ES256 tests tokens signed with a P-256 key
func TestVerifier_ParseAndVerifyToken_ES256(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate EC key: %v", err)
	}
	_, rsaPub := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, NewStaticJWKS(map[string]crypto.PublicKey{
		"ec-1":  &ecKey.PublicKey,
		"rsa-1": rsaPub,
	}))

	sign := func(kid string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
			"sub": "user-ec",
			"iss": testIssuer,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		token.Header["kid"] = kid
		s, err := token.SignedString(ecKey)
		if err != nil {
			t.Fatalf("Failed to sign token: %v", err)
		}
		return s
	}

	principal, err := verifier.ParseAndVerifyToken(sign("ec-1"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if principal.UserID != "user-ec" {
		t.Errorf("Expected UserID 'user-ec', got '%s'", principal.UserID)
	}

	// An ES256 header pointing at an RSA key is rejected.
	if _, err := verifier.ParseAndVerifyToken(sign("rsa-1")); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for mismatched key type, got %v", err)
	}
}
