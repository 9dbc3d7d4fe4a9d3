package auth

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated access token.
type Principal struct {
	UserID string
	Email  string
	// Role comes from user_metadata.role and is empty when absent or unknown.
	Role   Role
	Claims jwt.MapClaims
}

var (
	ErrNoToken         = errors.New("no token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrMissingSub      = errors.New("missing sub claim")
)

// Verifier validates access tokens issued by the identity provider.
type Verifier struct {
	cfg  Config
	jwks *JWKS
}

// NewVerifier constructs a verifier. jwks may be nil when only HS256 is used.
func NewVerifier(cfg Config, jwks *JWKS) *Verifier {
	return &Verifier{cfg: cfg, jwks: jwks}
}

// ParseAndVerifyToken verifies a bearer token, validates iss/aud/exp and returns Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if v.cfg.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
			return nil, ErrInvalidIssuer
		}
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}
	email, _ := claims["email"].(string)

	var role Role
	if md, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if s, ok := md["role"].(string); ok {
			role, _ = ParseRole(s)
		}
	}

	return &Principal{
		UserID: sub,
		Email:  email,
		Role:   role,
		Claims: claims,
	}, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); ok {
		if v.cfg.JWTSecret == "" {
			return nil, ErrInvalidToken
		}
		return []byte(v.cfg.JWTSecret), nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" || v.jwks == nil {
		return nil, ErrInvalidToken
	}
	key, err := v.jwks.Get(kid)
	if err != nil {
		return nil, err
	}
	// The key type must match the signing method named in the header.
	switch t.Method.(type) {
	case *jwt.SigningMethodRSA:
		if k, ok := key.(*rsa.PublicKey); ok {
			return k, nil
		}
	case *jwt.SigningMethodECDSA:
		if k, ok := key.(*ecdsa.PublicKey); ok {
			return k, nil
		}
	}
	return nil, ErrInvalidToken
}
