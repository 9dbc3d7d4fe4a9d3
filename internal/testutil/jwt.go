package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

const (
	TestIssuer   = "http://auth.test/auth/v1"
	TestAudience = "authenticated"
	TestSecret   = "test-jwt-secret"
)

// NewTestVerifier returns an HS256 verifier matching SignTestToken.
func NewTestVerifier() *auth.Verifier {
	return auth.NewVerifier(auth.Config{
		Issuer:    TestIssuer,
		Audience:  TestAudience,
		JWTSecret: TestSecret,
	}, nil)
}

// SignTestToken creates an access token shaped like the identity provider's,
// with name and role in user_metadata.
func SignTestToken(t *testing.T, userID, email string, role auth.Role) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   userID,
		"iss":   TestIssuer,
		"aud":   TestAudience,
		"email": email,
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"user_metadata": map[string]interface{}{
			"role": string(role),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}
