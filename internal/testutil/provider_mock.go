package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

type mockAccount struct {
	password string
	user     auth.ProviderUser
}

// MockProvider is an in-memory identity provider. Accounts live in a map and
// access tokens are opaque uuids. Any Func field overrides the default behaviour.
type MockProvider struct {
	mu       sync.Mutex
	accounts map[string]*mockAccount // email -> account
	tokens   map[string]string       // access or refresh token -> email

	SignInFunc     func(ctx context.Context, email, password string) (*auth.ProviderSession, error)
	SignUpFunc     func(ctx context.Context, req auth.SignUpRequest) (*auth.ProviderUser, *auth.ProviderSession, error)
	SignOutFunc    func(ctx context.Context, accessToken string) error
	DeleteUserFunc func(ctx context.Context, userID string) error

	SignOutCalls  int
	RecoverEmails []string
	DeletedUsers  []string
}

var _ auth.Provider = (*MockProvider)(nil)

// NewMockProvider creates an empty mock identity provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		accounts: make(map[string]*mockAccount),
		tokens:   make(map[string]string),
	}
}

// AddUser registers an account and returns its id.
func (m *MockProvider) AddUser(email, password, name string, role auth.Role) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.accounts[email] = &mockAccount{
		password: password,
		user: auth.ProviderUser{
			ID:           id,
			Email:        email,
			CreatedAt:    time.Now().UTC(),
			UserMetadata: map[string]interface{}{"name": name, "role": string(role)},
		},
	}
	return id
}

func (m *MockProvider) issue(email string) *auth.ProviderSession {
	acc := m.accounts[email]
	u := acc.user
	s := &auth.ProviderSession{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         &u,
	}
	m.tokens[s.AccessToken] = email
	m.tokens[s.RefreshToken] = email
	return s
}

func invalidCredentials() error {
	return &auth.ProviderError{Status: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"}
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[email]
	if !ok || acc.password != password {
		return nil, invalidCredentials()
	}
	return m.issue(email), nil
}

func (m *MockProvider) SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.ProviderUser, *auth.ProviderSession, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, req)
	}
	if _, exists := m.lookup(req.Email); exists {
		return nil, nil, &auth.ProviderError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	m.AddUser(req.Email, req.Password, req.Name, req.Role)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.issue(req.Email)
	return s.User, s, nil
}

func (m *MockProvider) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	m.SignOutCalls++
	delete(m.tokens, accessToken)
	m.mu.Unlock()

	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockProvider) RefreshSession(ctx context.Context, refreshToken string) (*auth.ProviderSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.tokens[refreshToken]
	if !ok {
		return nil, &auth.ProviderError{Status: http.StatusBadRequest, Message: "Invalid Refresh Token"}
	}
	delete(m.tokens, refreshToken)
	return m.issue(email), nil
}

func (m *MockProvider) GetUser(ctx context.Context, accessToken string) (*auth.ProviderUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.tokens[accessToken]
	if !ok {
		return nil, &auth.ProviderError{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	u := m.accounts[email].user
	return &u, nil
}

func (m *MockProvider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecoverEmails = append(m.RecoverEmails, email)
	return nil
}

func (m *MockProvider) UpdatePassword(ctx context.Context, accessToken, password string) (*auth.ProviderUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.tokens[accessToken]
	if !ok {
		return nil, &auth.ProviderError{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	acc := m.accounts[email]
	acc.password = password
	u := acc.user
	return &u, nil
}

// DeleteUser drops the account with userID and records the call.
func (m *MockProvider) DeleteUser(ctx context.Context, userID string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedUsers = append(m.DeletedUsers, userID)
	for email, acc := range m.accounts {
		if acc.user.ID == userID {
			delete(m.accounts, email)
		}
	}
	return nil
}

// Revoke invalidates a token as if it had expired at the provider.
func (m *MockProvider) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

func (m *MockProvider) lookup(email string) (*mockAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[email]
	return acc, ok
}
