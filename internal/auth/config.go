package auth

// Config holds token verification settings.
type Config struct {
	Issuer   string
	Audience string
	// JWTSecret verifies HS256 tokens. Tokens carrying a kid are checked against the JWKS instead.
	JWTSecret string
	JWKSURL   string
}
