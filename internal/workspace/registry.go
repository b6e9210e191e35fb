package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/docuflow/internal/entitlement"
	"github.com/sakif/docuflow/internal/repository"
)

// Registry hands out one Manager per authenticated user and keeps it for
// the duration of their session. Dropping a user discards both their
// document cache and their entitlement snapshot, which is what sign-out
// requires.
type Registry struct {
	docs     repository.DocumentRepository
	profiles entitlement.ProfileSource
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Manager
}

// NewRegistry creates an empty registry. A nil clock defaults to time.Now
// in the entitlement stores it builds.
func NewRegistry(docs repository.DocumentRepository, profiles entitlement.ProfileSource, now func() time.Time, logger *slog.Logger) *Registry {
	return &Registry{
		docs:     docs,
		profiles: profiles,
		now:      now,
		logger:   logger,
		sessions: make(map[string]*Manager),
	}
}

// Get returns the manager for userID, creating it on first use.
func (r *Registry) Get(userID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.sessions[userID]; ok {
		return m
	}

	ent := entitlement.NewStore(r.profiles, r.now, r.logger)
	m := NewManager(userID, r.docs, ent, r.logger)
	r.sessions[userID] = m
	return m
}

// Drop discards userID's session state. Safe to call for unknown users.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}
