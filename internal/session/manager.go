package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
)

// CookieName holds the opaque session id.
const CookieName = "portal_session"

type Options struct {
	// TTL bounds how long a signed-in session survives in the cache.
	TTL time.Duration
	// IdleTTL evicts in-memory stores that have not been used for this long.
	IdleTTL      time.Duration
	CookieSecure bool
	// OnDestroy runs after a session ends so data keyed by its id can go too.
	OnDestroy func(ctx context.Context, sessionID string)
}

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Manager owns one Store per browser session. Live stores are kept in memory
// and signed-in sessions are snapshotted to the cache so they survive restarts.
type Manager struct {
	cache     cache.Cache
	provider  auth.Provider
	profiles  Profiles
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	opts      Options

	mu     sync.Mutex
	stores map[string]*entry
	quit   chan struct{}
	once   sync.Once
}

func NewManager(c cache.Cache, provider auth.Provider, profiles Profiles, publisher messaging.PublisherInterface, metrics MetricsRecorder, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	m := &Manager{
		cache:     c,
		provider:  provider,
		profiles:  profiles,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		stores:    make(map[string]*entry),
		quit:      make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

func snapshotKey(id string) string {
	return cache.Key("session", id)
}

func (m *Manager) newStore(id string) *Store {
	s := NewStore(id, m.provider, m.profiles, m.publisher, m.metrics)
	s.onChange = m.persist
	return s
}

// Open returns the store for the session id, restoring it from the cache when
// it is not live in this process. It reports false for unknown ids.
func (m *Manager) Open(ctx context.Context, id string) (*Store, bool) {
	m.mu.Lock()
	if e, ok := m.stores[id]; ok {
		e.lastSeen = time.Now()
		m.mu.Unlock()
		return e.store, true
	}
	m.mu.Unlock()

	var snap Snapshot
	if err := cache.GetJSON(ctx, m.cache, snapshotKey(id), &snap); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to read session snapshot")
		}
		return nil, false
	}

	s := m.newStore(id)
	// register before restoring so concurrent requests see the loading state
	s.begin()
	m.mu.Lock()
	if e, ok := m.stores[id]; ok {
		m.mu.Unlock()
		return e.store, true
	}
	m.stores[id] = &entry{store: s, lastSeen: time.Now()}
	m.mu.Unlock()

	// a client disconnect must not sign the session out
	if !s.Restore(context.WithoutCancel(ctx), snap) {
		m.Destroy(ctx, s)
		return s, true
	}
	return s, true
}

// Ephemeral returns an unregistered store. Register adopts it once signed in.
func (m *Manager) Ephemeral() *Store {
	return m.newStore(uuid.NewString())
}

// Register makes s a live session and writes its cookie.
func (m *Manager) Register(ctx context.Context, w http.ResponseWriter, s *Store) {
	m.mu.Lock()
	m.stores[s.id] = &entry{store: s, lastSeen: time.Now()}
	m.mu.Unlock()

	m.persist(ctx, s)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Destroy removes the session from memory and the cache.
func (m *Manager) Destroy(ctx context.Context, s *Store) {
	m.mu.Lock()
	delete(m.stores, s.id)
	m.mu.Unlock()

	if err := m.cache.Delete(ctx, snapshotKey(s.id)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to delete session snapshot")
	}
	if m.opts.OnDestroy != nil {
		m.opts.OnDestroy(ctx, s.id)
	}
}

// SignedIn moves a freshly authenticated identity onto a new session id and
// registers that one. The id the client held before signing in is destroyed.
func (m *Manager) SignedIn(ctx context.Context, w http.ResponseWriter, s *Store) *Store {
	fresh := m.newStore(uuid.NewString())

	s.mu.Lock()
	fresh.identity, fresh.tokens = s.identity, s.tokens
	s.identity, s.tokens = nil, nil
	s.mu.Unlock()

	m.Destroy(ctx, s)
	m.Register(ctx, w, fresh)
	log.Ctx(ctx).Debug().Str("session_id", fresh.id).Msg("session rotated on sign-in")
	return fresh
}

// ClearCookie expires the session cookie on the client.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// persist snapshots signed-in registered stores and drops signed-out ones.
func (m *Manager) persist(ctx context.Context, s *Store) {
	m.mu.Lock()
	_, live := m.stores[s.id]
	m.mu.Unlock()
	if !live {
		return
	}

	snap := s.snapshot()
	if snap.Identity == nil {
		if err := m.cache.Delete(ctx, snapshotKey(s.id)); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to delete session snapshot")
		}
		return
	}
	if err := cache.SetJSON(ctx, m.cache, snapshotKey(s.id), snap, m.opts.TTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write session snapshot")
	}
}

// FromBearer builds a request-scoped store for a verified token. The stored
// profile wins over token claims when it exists.
func (m *Manager) FromBearer(ctx context.Context, pr *auth.Principal, token string) *Store {
	s := m.newStore(uuid.NewString())
	s.onChange = nil

	identity := &auth.Identity{ID: pr.UserID, Email: pr.Email, Role: pr.Role}
	if p, err := m.profiles.GetProfile(ctx, pr.UserID); err == nil {
		identity = p.Identity()
	} else {
		log.Ctx(ctx).Debug().Err(err).Str("user_id", pr.UserID).Msg("no profile for bearer token, using claims")
	}
	s.identity = identity
	s.tokens = &Tokens{AccessToken: token}
	return s
}

// Len reports the number of live stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Sweep evicts stores idle since before cutoff. Their snapshots stay cached.
func (m *Manager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.stores {
		if e.lastSeen.Before(cutoff) {
			delete(m.stores, id)
			n++
		}
	}
	return n
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.opts.IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(time.Now().Add(-m.opts.IdleTTL)); n > 0 {
				log.Debug().Int("evicted", n).Msg("evicted idle sessions")
			}
		case <-m.quit:
			return
		}
	}
}

// Close stops the idle sweeper.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.quit) })
}
