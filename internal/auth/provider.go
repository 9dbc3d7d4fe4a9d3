package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrProviderRequest   = errors.New("identity provider request failed")
	ErrInvalidResponse   = errors.New("invalid response from identity provider")
	ErrProviderConfig    = errors.New("missing identity provider configuration")
	ErrNoSessionReturned = errors.New("identity provider returned no session")
)

// ProviderError carries the provider's status and message. It unwraps to ErrProviderRequest.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrProviderRequest, e.Status)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return ErrProviderRequest }

// ProviderUser is the provider's view of an account.
type ProviderUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	CreatedAt    time.Time              `json:"created_at"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// MetadataString reads a string field from user_metadata.
func (u *ProviderUser) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[key].(string)
	return s
}

// ProviderSession is a token pair plus the user it belongs to.
type ProviderSession struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *ProviderUser `json:"user"`
}

// SignUpRequest creates an account with name and role stored as user metadata.
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// Provider is the identity provider surface used by sessions and registration.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error)
	SignUp(ctx context.Context, req SignUpRequest) (*ProviderUser, *ProviderSession, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*ProviderSession, error)
	GetUser(ctx context.Context, accessToken string) (*ProviderUser, error)
	RecoverPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*ProviderUser, error)
	// DeleteUser removes an account. It needs a service-role API key.
	DeleteUser(ctx context.Context, userID string) error
}

var _ Provider = (*ProviderClient)(nil)

// ProviderClient talks to a GoTrue-compatible auth REST API.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProviderClient creates a client rooted at baseURL (the /auth/v1 prefix is added).
func NewProviderClient(baseURL, apiKey string) (*ProviderClient, error) {
	if baseURL == "" {
		return nil, ErrProviderConfig
	}
	return &ProviderClient{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *ProviderClient) SignInWithPassword(ctx context.Context, email, password string) (*ProviderSession, error) {
	var s ProviderSession
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" || s.User == nil {
		return nil, ErrNoSessionReturned
	}
	return &s, nil
}

// SignUp registers an account. The session is nil when the provider requires
// email confirmation before sign-in.
func (c *ProviderClient) SignUp(ctx context.Context, req SignUpRequest) (*ProviderUser, *ProviderSession, error) {
	body := map[string]interface{}{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]string{
			"name": req.Name,
			"role": string(req.Role),
		},
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &raw); err != nil {
		return nil, nil, err
	}

	// either a session envelope or a bare user object
	var s ProviderSession
	if err := json.Unmarshal(raw, &s); err == nil && s.AccessToken != "" && s.User != nil {
		return s.User, &s, nil
	}
	var u ProviderUser
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == "" {
		return nil, nil, ErrInvalidResponse
	}
	return &u, nil, nil
}

// SignOut revokes the session behind accessToken.
func (c *ProviderClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// RefreshSession trades a refresh token for a new session.
func (c *ProviderClient) RefreshSession(ctx context.Context, refreshToken string) (*ProviderSession, error) {
	var s ProviderSession
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" || s.User == nil {
		return nil, ErrNoSessionReturned
	}
	return &s, nil
}

// GetUser fetches the account behind accessToken.
func (c *ProviderClient) GetUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	var u ProviderUser
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RecoverPassword sends a reset email that links back to redirectTo.
func (c *ProviderClient) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?" + url.Values{"redirect_to": {redirectTo}}.Encode()
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user behind accessToken.
func (c *ProviderClient) UpdatePassword(ctx context.Context, accessToken, password string) (*ProviderUser, error) {
	var u ProviderUser
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes the account through the admin API, authenticated with
// the configured API key.
func (c *ProviderClient) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), c.apiKey, nil, nil)
}

func (c *ProviderClient) do(ctx context.Context, method, path, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProviderError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func decodeProviderError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Code             interface{} `json:"code"`
		ErrorCode        string      `json:"error_code"`
		Error            string      `json:"error"`
		Msg              string      `json:"msg"`
		ErrorDescription string      `json:"error_description"`
		Message          string      `json:"message"`
	}
	_ = json.Unmarshal(b, &payload)

	pe := &ProviderError{Status: resp.StatusCode}
	switch {
	case payload.Msg != "":
		pe.Message = payload.Msg
	case payload.ErrorDescription != "":
		pe.Message = payload.ErrorDescription
	case payload.Message != "":
		pe.Message = payload.Message
	}
	switch {
	case payload.ErrorCode != "":
		pe.Code = payload.ErrorCode
	case payload.Error != "":
		pe.Code = payload.Error
	}
	return pe
}
