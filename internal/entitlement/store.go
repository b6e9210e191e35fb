package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/model"
)

// ProfileSource is the slice of the record store the entitlement layer
// reads. repository.ProfileRepository satisfies it.
type ProfileSource interface {
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
}

// Store caches one user's subscription snapshot for quota decisions.
//
// The cache trades freshness for availability in exactly one direction: a
// failed Load keeps the previous snapshot in place (stale but usable) and
// reports a transient error, except when the account itself no longer
// exists. It never fabricates entitlement: a fetch failure is not
// "premium", and an absent snapshot denies creation.
//
// The clock is injected so expiry behaviour is testable without waiting.
type Store struct {
	profiles ProfileSource
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	snap *Snapshot
}

// NewStore creates an empty store. A nil clock defaults to time.Now.
func NewStore(profiles ProfileSource, now func() time.Time, logger *slog.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		profiles: profiles,
		now:      now,
		logger:   logger,
	}
}

// Load fetches the current subscription facts for userID and replaces the
// cached snapshot. On a fetch failure the prior snapshot survives untouched
// and the caller gets a recoverable transient error. A missing account is
// different: the profile is gone, not unreachable, so Load discards the
// snapshot and returns NotFound unwrapped.
//
// A Load fully settles before its result is visible: the snapshot swap is a
// single whole-value replacement under the lock, so a concurrent reader
// sees either the old snapshot or the new one, never a partial write.
func (s *Store) Load(ctx context.Context, userID string) (*Snapshot, error) {
	profile, err := s.profiles.GetProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.mu.Lock()
			s.snap = nil
			s.mu.Unlock()

			s.logger.Warn("subscription refresh found no account",
				slog.String("userID", userID))
			return nil, fmt.Errorf("entitlement: %w", err)
		}

		s.logger.Warn("subscription refresh failed, keeping stale snapshot",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("entitlement: %w", apperror.Transient("loading subscription", err))
	}

	snap := SnapshotFromProfile(profile)

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Debug("subscription snapshot refreshed",
		slog.String("userID", userID),
		slog.String("tier", string(snap.Tier)),
		slog.Int("documentCount", snap.DocumentCount),
	)

	copied := *snap
	return &copied, nil
}

// Invalidate discards the cached snapshot. The next entitlement consumer
// must Load before it can be granted anything.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the cached snapshot, or nil if none is loaded.
// Returning a copy keeps callers from mutating the cache in place.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return nil
	}
	copied := *s.snap
	return &copied
}

// CanCreateDocument evaluates the quota policy against the cached snapshot
// at the store's current clock time.
func (s *Store) CanCreateDocument() bool {
	return s.Snapshot().CanCreateDocument(s.now())
}

// PremiumActive evaluates premium status against the cached snapshot.
func (s *Store) PremiumActive() bool {
	return s.Snapshot().PremiumActive(s.now())
}

// Expired evaluates subscription expiry against the cached snapshot.
func (s *Store) Expired() bool {
	return s.Snapshot().Expired(s.now())
}
