package booking

import (
	"context"
	"errors"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
)

// DraftStore keeps drafts in the session cache between requests. A draft
// belongs to one patient within one browser session.
type DraftStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewDraftStore(c cache.Cache, ttl time.Duration) *DraftStore {
	return &DraftStore{cache: c, ttl: ttl}
}

func draftKey(sessionID, patientID string) string {
	return cache.Key("booking", "draft", sessionID, patientID)
}

// Load returns the stored draft, or a fresh one when none is stored.
func (s *DraftStore) Load(ctx context.Context, sessionID, patientID string, today time.Time) (*Draft, error) {
	var d Draft
	err := cache.GetJSON(ctx, s.cache, draftKey(sessionID, patientID), &d)
	if errors.Is(err, cache.ErrCacheMiss) {
		return NewDraft(today), nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DraftStore) Save(ctx context.Context, sessionID, patientID string, d *Draft) error {
	return cache.SetJSON(ctx, s.cache, draftKey(sessionID, patientID), d, s.ttl)
}

func (s *DraftStore) Delete(ctx context.Context, sessionID, patientID string) error {
	return s.cache.Delete(ctx, draftKey(sessionID, patientID))
}

// DiscardSession drops every draft of a browser session. It runs when the
// session ends.
func (s *DraftStore) DiscardSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.cache.Clear(ctx, cache.Key("booking", "draft", sessionID, "*"))
}
