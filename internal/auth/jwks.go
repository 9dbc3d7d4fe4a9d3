package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrKeyNotFound = errors.New("jwks: key not found")

// minMissRefresh limits how often an unknown kid can trigger a fetch.
const minMissRefresh = 30 * time.Second

// jwk is one entry of the provider's key set. GoTrue publishes RSA keys for
// RS256 and P-256 keys for ES256.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Crv string `json:"crv"`
	N   string `json:"n"`
	E   string `json:"e"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (k jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeSegment(k.N)
		if err != nil {
			return nil, err
		}
		e, err := decodeSegment(k.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		if k.Crv != "P-256" {
			return nil, fmt.Errorf("jwks: unsupported curve %q", k.Crv)
		}
		x, err := decodeSegment(k.X)
		if err != nil {
			return nil, err
		}
		y, err := decodeSegment(k.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	}
	return nil, nil
}

func decodeSegment(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("jwks: bad key encoding: %w", err)
	}
	return new(big.Int).SetBytes(b), nil
}

// JWKS caches the identity provider's public signing keys by kid.
type JWKS struct {
	url    string
	client *http.Client

	mu          sync.RWMutex
	keys        map[string]crypto.PublicKey
	lastRefresh time.Time

	ticker *time.Ticker
	quit   chan struct{}
}

// NewJWKS loads the key set from url and refreshes it every refreshInterval
// (15m when zero).
func NewJWKS(ctx context.Context, url string, refreshInterval time.Duration) (*JWKS, error) {
	if refreshInterval <= 0 {
		refreshInterval = 15 * time.Minute
	}
	j := &JWKS{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   map[string]crypto.PublicKey{},
	}
	if err := j.refresh(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("url", url).Int("keys", len(j.keys)).Msg("✓ JWKS loaded")

	j.ticker = time.NewTicker(refreshInterval)
	j.quit = make(chan struct{})
	go j.loop()
	return j, nil
}

// NewStaticJWKS serves a fixed key set and never refreshes.
func NewStaticJWKS(keys map[string]crypto.PublicKey) *JWKS {
	return &JWKS{keys: keys}
}

func (j *JWKS) loop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.refresh(context.Background()); err != nil {
				log.Warn().Err(err).Msg("JWKS refresh failed, keeping previous keys")
			}
		case <-j.quit:
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.quit == nil {
		return
	}
	close(j.quit)
	j.ticker.Stop()
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	keys := make(map[string]crypto.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		pub, err := k.publicKey()
		if err != nil {
			return err
		}
		if pub != nil && k.Kid != "" {
			keys[k.Kid] = pub
		}
	}

	j.mu.Lock()
	j.keys = keys
	j.lastRefresh = time.Now()
	j.mu.Unlock()
	return nil
}

func (j *JWKS) lookup(kid string) crypto.PublicKey {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.keys[kid]
}

// Get returns the key for kid. An unknown kid triggers at most one refresh
// per minMissRefresh, which picks up rotated keys.
func (j *JWKS) Get(kid string) (crypto.PublicKey, error) {
	if pub := j.lookup(kid); pub != nil {
		return pub, nil
	}
	if j.url == "" {
		return nil, ErrKeyNotFound
	}

	j.mu.RLock()
	recent := time.Since(j.lastRefresh) < minMissRefresh
	j.mu.RUnlock()
	if recent {
		return nil, ErrKeyNotFound
	}

	if err := j.refresh(context.Background()); err != nil {
		return nil, err
	}
	if pub := j.lookup(kid); pub != nil {
		return pub, nil
	}
	return nil, ErrKeyNotFound
}
