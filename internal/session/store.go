package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
)

// Profiles is the profile storage the session reads and writes.
type Profiles interface {
	GetProfile(ctx context.Context, id string) (*profile.Profile, error)
	CreateProfile(ctx context.Context, p profile.Profile) (*profile.Profile, error)
}

// MetricsRecorder counts session operations by name and outcome.
type MetricsRecorder interface {
	RecordSessionOperation(ctx context.Context, op string, ok bool)
}

// Tokens are the provider credentials held for a signed-in session.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (t *Tokens) expired(now time.Time) bool {
	return t.ExpiresAt.IsZero() || !now.Before(t.ExpiresAt)
}

func tokensFrom(s *auth.ProviderSession) *Tokens {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	t := &Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	switch {
	case s.ExpiresAt > 0:
		t.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		t.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return t
}

// RegisterRequest is the self-service sign-up form.
type RegisterRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func (r *RegisterRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	switch {
	case len([]rune(r.Name)) < 2:
		return "Name must be at least 2 characters"
	case !validEmail(r.Email):
		return "Please enter a valid email address"
	case len(r.Password) < minPasswordLength:
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	case !r.Role.Valid():
		return "Please select a valid role"
	}
	return ""
}

const minPasswordLength = 8

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// rollbackSignUp deletes a provider account whose profile could not be
// stored. A failed delete leaves an orphaned account, which is logged with its id.
func rollbackSignUp(ctx context.Context, provider auth.Provider, userID string) {
	if err := provider.DeleteUser(ctx, userID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", userID).
			Msg("orphaned provider account: sign-up rollback failed")
	}
}

// Store is the session of one browser. Every operation takes a generation
// number when it starts, and only the latest started operation may change the
// identity or clear the loading flag.
type Store struct {
	id        string
	provider  auth.Provider
	profiles  Profiles
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder

	mu       sync.Mutex
	gen      uint64
	loading  bool
	identity *auth.Identity
	tokens   *Tokens

	// onChange runs after a committed change, outside the lock.
	onChange func(ctx context.Context, s *Store)
}

var _ auth.SessionState = (*Store)(nil)

// NewStore returns a signed-out, settled session.
func NewStore(id string, provider auth.Provider, profiles Profiles, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Store {
	return &Store{
		id:        id,
		provider:  provider,
		profiles:  profiles,
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *Store) ID() string {
	return s.id
}

// Current returns the identity and whether an operation is still in flight.
func (s *Store) Current() (*auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, s.loading
	}
	id := *s.identity
	return &id, s.loading
}

// Tokens returns a copy of the provider credentials, if signed in.
func (s *Store) Tokens() *Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil
	}
	t := *s.tokens
	return &t
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.loading = true
	return s.gen
}

// commit replaces identity and tokens if gen is still the latest operation.
func (s *Store) commit(ctx context.Context, gen uint64, identity *auth.Identity, tokens *Tokens) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.identity = identity
	s.tokens = tokens
	s.loading = false
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, s)
	}
	return true
}

// settle clears loading without touching the identity.
func (s *Store) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.loading = false
	}
}

func (s *Store) record(ctx context.Context, op string, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordSessionOperation(ctx, op, ok)
	}
}

func providerMessage(err error, fallback string) string {
	var pe *auth.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return fallback
}

// Login signs in and loads the stored profile. The chosen role only picks the
// dashboard to navigate to; a different stored role is not rejected.
func (s *Store) Login(ctx context.Context, sink flash.Sink, email, password string, intendedRole auth.Role) bool {
	logger := log.Ctx(ctx)
	gen := s.begin()
	defer s.settle(gen)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		flash.Error(sink, "Please enter your email and password")
		s.record(ctx, "login", false)
		return false
	}

	sess, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		logger.Warn().Err(err).Msg("sign-in failed")
		flash.Error(sink, providerMessage(err, "Failed to log in"))
		s.record(ctx, "login", false)
		return false
	}
	if sess == nil || sess.User == nil {
		flash.Error(sink, "User not found")
		s.record(ctx, "login", false)
		return false
	}

	p, err := s.profiles.GetProfile(ctx, sess.User.ID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", sess.User.ID).Msg("profile lookup failed")
		flash.Error(sink, "User profile not found")
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			logger.Warn().Err(err).Msg("failed to sign out after missing profile")
		}
		s.record(ctx, "login", false)
		return false
	}

	if !s.commit(ctx, gen, p.Identity(), tokensFrom(sess)) {
		// a newer operation started meanwhile and owns the session now
		s.record(ctx, "login", false)
		return false
	}
	if p.Role != intendedRole {
		logger.Info().Str("user_id", p.ID).Str("stored_role", string(p.Role)).Str("chosen_role", string(intendedRole)).
			Msg("login role differs from stored profile role")
	}
	logger.Info().Str("user_id", p.ID).Msg("✓ User logged in")
	flash.Success(sink, "Welcome back!")
	sink.Navigate(auth.DashboardPath(intendedRole))
	s.record(ctx, "login", true)
	return true
}

// Register signs up with the provider and creates the profile tagged with the role.
func (s *Store) Register(ctx context.Context, sink flash.Sink, req RegisterRequest) bool {
	logger := log.Ctx(ctx)
	gen := s.begin()
	defer s.settle(gen)

	if msg := req.validate(); msg != "" {
		flash.Error(sink, msg)
		s.record(ctx, "register", false)
		return false
	}

	user, sess, err := s.provider.SignUp(ctx, auth.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("sign-up failed")
		flash.Error(sink, providerMessage(err, "Failed to register"))
		s.record(ctx, "register", false)
		return false
	}
	if user == nil {
		flash.Error(sink, "Registration failed")
		s.record(ctx, "register", false)
		return false
	}

	p, err := s.profiles.CreateProfile(ctx, profile.Profile{
		ID:    user.ID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to create profile, rolling back sign-up")
		rollbackSignUp(ctx, s.provider, user.ID)
		if errors.Is(err, profile.ErrDuplicateProfile) {
			flash.Error(sink, "An account with this email already exists")
		} else {
			flash.Error(sink, "Failed to create user profile")
		}
		s.record(ctx, "register", false)
		return false
	}

	if s.publisher != nil {
		event := messaging.UserRegisteredEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventUserRegistered),
			Data: messaging.UserRegisteredData{
				UserID:    p.ID,
				Email:     p.Email,
				Role:      string(p.Role),
				CreatedAt: p.CreatedAt,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventUserRegistered, event); err != nil {
			logger.Warn().Err(err).Msg("failed to publish user.registered event")
		}
	}

	// without auto-confirm the provider returns no session and the user signs in later
	if tokens := tokensFrom(sess); tokens != nil {
		s.commit(ctx, gen, p.Identity(), tokens)
	}

	logger.Info().Str("user_id", p.ID).Str("role", string(p.Role)).Msg("✓ User registered")
	flash.Success(sink, "Account created successfully")
	sink.Navigate(auth.DashboardPath(req.Role))
	s.record(ctx, "register", true)
	return true
}

// Logout signs out at the provider and clears the identity. Provider failures
// are logged; the local session is cleared regardless.
func (s *Store) Logout(ctx context.Context, sink flash.Sink) {
	gen := s.begin()
	if t := s.Tokens(); t != nil {
		if err := s.provider.SignOut(ctx, t.AccessToken); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("provider sign-out failed")
		}
	}
	s.commit(ctx, gen, nil, nil)
	sink.Navigate(auth.LoginPath)
	flash.Success(sink, "Logged out successfully")
	s.record(ctx, "logout", true)
}

// Restore rebuilds the session from a cached snapshot. Expired tokens are
// refreshed and the profile is reloaded, so role changes take effect.
func (s *Store) Restore(ctx context.Context, snap Snapshot) bool {
	logger := log.Ctx(ctx)
	gen := s.begin()
	defer s.settle(gen)

	tokens := snap.Tokens
	if tokens == nil || snap.Identity == nil {
		s.commit(ctx, gen, nil, nil)
		return false
	}
	if tokens.expired(time.Now()) {
		refreshed, err := s.provider.RefreshSession(ctx, tokens.RefreshToken)
		if err != nil {
			logger.Info().Err(err).Str("session_id", s.id).Msg("session refresh failed, signing out")
			s.commit(ctx, gen, nil, nil)
			s.record(ctx, "restore", false)
			return false
		}
		tokens = tokensFrom(refreshed)
	}

	p, err := s.profiles.GetProfile(ctx, snap.Identity.ID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", snap.Identity.ID).Msg("profile missing on restore")
		s.commit(ctx, gen, nil, nil)
		s.record(ctx, "restore", false)
		return false
	}

	ok := s.commit(ctx, gen, p.Identity(), tokens)
	s.record(ctx, "restore", ok)
	return ok
}

// RequestPasswordReset asks the provider to email a recovery link to redirectTo.
func (s *Store) RequestPasswordReset(ctx context.Context, sink flash.Sink, email, redirectTo string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		flash.Error(sink, "Please enter your email address")
		return false
	}
	if err := s.provider.RecoverPassword(ctx, email, redirectTo); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("password recovery failed")
		flash.Error(sink, providerMessage(err, "Failed to send password reset email. Please try again later."))
		s.record(ctx, "recover", false)
		return false
	}
	flash.Success(sink, "Password reset instructions sent to your email")
	s.record(ctx, "recover", true)
	return true
}

// ResetPassword sets a new password with the recovery access token.
func (s *Store) ResetPassword(ctx context.Context, sink flash.Sink, accessToken, password string) bool {
	if accessToken == "" {
		flash.Error(sink, "Password reset link is invalid or has expired")
		return false
	}
	if len(password) < minPasswordLength {
		flash.Error(sink, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		return false
	}
	if _, err := s.provider.UpdatePassword(ctx, accessToken, password); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("password update failed")
		flash.Error(sink, providerMessage(err, "Failed to update password"))
		s.record(ctx, "reset_password", false)
		return false
	}
	flash.Success(sink, "Password updated successfully")
	sink.Navigate(auth.LoginPath)
	s.record(ctx, "reset_password", true)
	return true
}

// Snapshot is the cached form of a signed-in session.
type Snapshot struct {
	Identity *auth.Identity `json:"identity"`
	Tokens   *Tokens        `json:"tokens"`
}

func (s *Store) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	if s.tokens != nil {
		t := *s.tokens
		snap.Tokens = &t
	}
	return snap
}
