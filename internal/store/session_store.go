// internal/store/session_store.go
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/errors"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

const (
	sessionsKey     = "sessions.json"
	sessionProbeKey = "sessions.probe"
)

// EvictionPolicy picks the index of the session to drop when a candidate list
// does not fit. The default drops the oldest (index 0).
type EvictionPolicy func(candidate []models.Session) int

// OldestFirst is the FIFO policy: sessions are evicted strictly by age,
// irrespective of size or content.
func OldestFirst(candidate []models.Session) int {
	return 0
}

// CapacityProbe speculatively checks whether serialized fits the quota
// without mutating committed state. It must report quota failures with
// storage.ErrQuotaExceeded.
type CapacityProbe func(serialized []byte) error

// BoundedSessionStore persists the append-only sequence of sessions under the
// backend's byte quota. The committed value is only ever replaced by a value
// the capacity probe has verified to fit, so a failed append leaves the store
// exactly as it was.
type BoundedSessionStore struct {
	backend storage.Backend
	evict   EvictionPolicy
	probe   CapacityProbe

	// Append's probe-then-commit sequence must not interleave with another
	// append to the same store.
	mu sync.Mutex
}

// Option customizes a BoundedSessionStore.
type Option func(*BoundedSessionStore)

// WithEvictionPolicy replaces the default oldest-first policy.
func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(s *BoundedSessionStore) { s.evict = p }
}

// WithCapacityProbe replaces the default probe-key write. Tests use this to
// simulate quotas without a backend.
func WithCapacityProbe(p CapacityProbe) Option {
	return func(s *BoundedSessionStore) { s.probe = p }
}

// NewBoundedSessionStore creates a store over backend.
func NewBoundedSessionStore(backend storage.Backend, opts ...Option) *BoundedSessionStore {
	s := &BoundedSessionStore{
		backend: backend,
		evict:   OldestFirst,
	}
	s.probe = s.probeViaBackend
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// probeViaBackend writes the candidate to a transient probe key and removes
// it again. The real key is never touched.
func (s *BoundedSessionStore) probeViaBackend(serialized []byte) error {
	if err := s.backend.Put(sessionProbeKey, serialized); err != nil {
		return err
	}
	if err := s.backend.Delete(sessionProbeKey); err != nil {
		utils.GetLogger().Warn("failed to remove capacity probe key", map[string]interface{}{"err": err})
	}
	return nil
}

// Append persists existing sessions plus session. On a capacity failure it
// evicts the oldest session from the candidate and retries; when only one
// session remains, or the probe fails for any other reason, it aborts with
// the store unchanged.
func (s *BoundedSessionStore) Append(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, err := s.load()
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	candidate = append(candidate, session)

	for {
		serialized, err := json.Marshal(candidate)
		if err != nil {
			return fmt.Errorf("serialize sessions: %w", err)
		}

		probeErr := s.probe(serialized)
		if probeErr == nil {
			if err := s.backend.Put(sessionsKey, serialized); err != nil {
				return errors.NewStorageFull("commit sessions", err)
			}
			return nil
		}

		if !storage.IsQuotaExceeded(probeErr) {
			return errors.New(errors.KindStorageFull, "session store write failed", probeErr)
		}
		if len(candidate) <= 1 {
			return errors.NewStorageFull("session does not fit even after maximal eviction", probeErr)
		}

		victim := s.evict(candidate)
		utils.GetLogger().Info("evicting session to make room", map[string]interface{}{
			"session_id": candidate[victim].ID,
			"remaining":  len(candidate) - 1,
		})
		candidate = append(candidate[:victim], candidate[victim+1:]...)
	}
}

// List returns the stored sessions in creation order.
func (s *BoundedSessionStore) List() ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Remove deletes one session by identity. Unknown IDs are a no-op.
func (s *BoundedSessionStore) Remove(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}

	kept := sessions[:0]
	for _, session := range sessions {
		if session.ID != sessionID {
			kept = append(kept, session)
		}
	}
	if len(kept) == len(sessions) {
		return nil
	}

	serialized, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("serialize sessions: %w", err)
	}
	return s.backend.Put(sessionsKey, serialized)
}

func (s *BoundedSessionStore) load() ([]models.Session, error) {
	data, err := s.backend.Get(sessionsKey)
	if err == storage.ErrKeyNotFound {
		return []models.Session{}, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []models.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("parse sessions: %w", err)
	}
	return sessions, nil
}
