// Package workspace owns a user's document collection for the lifetime of
// their session: a transient read cache over the record store plus the
// create/update/delete operations that keep the cache and the entitlement
// snapshot in step.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/entitlement"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 1 << 20 // 1MB of plain text
)

// DeleteRequiresConfirmation tells the UI boundary that document deletion
// is destructive and must be explicitly confirmed by the user before the
// manager is called. The manager itself does not enforce it; the flag is
// policy exposed to whichever surface drives the workspace.
const DeleteRequiresConfirmation = true

// Manager is the document collection manager for a single user session.
//
// The cache it holds is ordered most-recently-updated first and is only
// ever swapped wholesale: every mutation builds a fresh slice and assigns
// it under the lock, so an abandoned operation can never leave the cache
// half-written. The record store remains the authoritative copy at all
// times; List reloads from it and everything else maintains the cache as a
// best-effort mirror between reloads.
type Manager struct {
	userID string
	docs   repository.DocumentRepository
	ent    *entitlement.Store
	logger *slog.Logger

	mu    sync.Mutex
	cache []model.Document
}

// NewManager creates a manager for one user's session.
func NewManager(userID string, docs repository.DocumentRepository, ent *entitlement.Store, logger *slog.Logger) *Manager {
	return &Manager{
		userID: userID,
		docs:   docs,
		ent:    ent,
		logger: logger,
	}
}

// UserID returns the owning user's identity.
func (m *Manager) UserID() string {
	return m.userID
}

// Entitlements exposes the session's entitlement store, for surfaces that
// report subscription state alongside documents.
func (m *Manager) Entitlements() *entitlement.Store {
	return m.ent
}

// List reloads the collection from the record store, replaces the cache,
// and returns the documents ordered by updatedAt descending. A failed
// reload leaves the previous cache in place and reports a transient error.
func (m *Manager) List(ctx context.Context) ([]model.Document, error) {
	docs, err := m.docs.ListByOwner(ctx, m.userID)
	if err != nil {
		if errors.Is(err, apperror.ErrAccessDenied) {
			return nil, err
		}
		m.logger.Error("failed to list documents",
			slog.String("userID", m.userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("workspace: %w", apperror.Transient("loading documents", err))
	}

	m.mu.Lock()
	m.cache = docs
	m.mu.Unlock()

	return m.snapshot(), nil
}

// Cached returns a copy of the current cache without touching the store.
func (m *Manager) Cached() []model.Document {
	return m.snapshot()
}

// Create validates the input, fast-fails on quota, writes the document, and
// inserts it at the head of the cache.
//
// The quota check here is a client-side fast-fail against the current
// snapshot; the record store re-checks authoritatively inside its insert
// transaction, and a store-side rejection surfaces as the same
// QuotaExceeded so callers see one denial regardless of which side caught
// it. After a successful create the entitlement snapshot is refreshed with
// an explicit invalidate-then-load, so the next quota decision sees the new
// document count.
func (m *Manager) Create(ctx context.Context, title, content string) (*model.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "document title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("document title must be %d characters or less", MaxTitleLength))
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("document content must be %d bytes or less", MaxContentLength))
	}

	if !m.ent.CanCreateDocument() {
		snap := m.ent.Snapshot()
		count := 0
		if snap != nil {
			count = snap.DocumentCount
		}
		return nil, apperror.QuotaExceeded(count, entitlement.FreeTierDocumentLimit)
	}

	doc := &model.Document{
		OwnerID: m.userID,
		Title:   title,
		Content: content,
	}
	if err := m.docs.Create(ctx, doc); err != nil {
		if errors.Is(err, apperror.ErrQuotaExceeded) {
			// Lost a race with another session near the boundary; the
			// store's answer is final. Refresh so the local snapshot stops
			// claiming headroom we do not have.
			m.refreshEntitlements(ctx)
			return nil, err
		}
		m.logger.Error("failed to create document",
			slog.String("userID", m.userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("workspace: %w", apperror.Transient("creating document", err))
	}

	m.mu.Lock()
	next := make([]model.Document, 0, len(m.cache)+1)
	next = append(next, *doc)
	next = append(next, m.cache...)
	m.cache = next
	m.mu.Unlock()

	m.refreshEntitlements(ctx)

	m.logger.Info("document created",
		slog.String("id", doc.ID),
		slog.String("userID", m.userID),
	)

	return doc, nil
}

// Update rewrites a document's title and content and moves it to the head
// of the cache. A documentID the local cache does not hold fails with
// NotFound before any store call: the reference is stale and the caller
// should reload first.
func (m *Manager) Update(ctx context.Context, documentID, title, content string) (*model.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "document title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("document title must be %d characters or less", MaxTitleLength))
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("document content must be %d bytes or less", MaxContentLength))
	}

	m.mu.Lock()
	cached, ok := m.find(documentID)
	m.mu.Unlock()
	if !ok {
		return nil, apperror.NotFound("document", documentID)
	}

	doc := cached
	doc.Title = title
	doc.Content = content

	if err := m.docs.Update(ctx, &doc); err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrAccessDenied) {
			return nil, err
		}
		m.logger.Error("failed to update document",
			slog.String("id", documentID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("workspace: %w", apperror.Transient("updating document", err))
	}

	m.mu.Lock()
	next := make([]model.Document, 0, len(m.cache))
	next = append(next, doc)
	for _, d := range m.cache {
		if d.ID != documentID {
			next = append(next, d)
		}
	}
	m.cache = next
	m.mu.Unlock()

	m.logger.Info("document updated", slog.String("id", doc.ID))

	return &doc, nil
}

// Delete removes a document. It is idempotent from the caller's point of
// view: deleting an id that is already gone surfaces NotFound and leaves
// the cache exactly as it was, it never corrupts the manager. A successful
// delete refreshes the entitlement snapshot, since a lowered count may
// re-enable creation.
func (m *Manager) Delete(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return apperror.ValidationFailed("id", "document ID is required")
	}

	if err := m.docs.Delete(ctx, documentID, m.userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrAccessDenied) {
			return err
		}
		m.logger.Error("failed to delete document",
			slog.String("id", documentID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("workspace: %w", apperror.Transient("deleting document", err))
	}

	m.mu.Lock()
	next := make([]model.Document, 0, len(m.cache))
	for _, d := range m.cache {
		if d.ID != documentID {
			next = append(next, d)
		}
	}
	m.cache = next
	m.mu.Unlock()

	m.refreshEntitlements(ctx)

	m.logger.Info("document deleted", slog.String("id", documentID))

	return nil
}

// refreshEntitlements runs the invalidate-then-load two-step after any
// mutation that changed the document count. A failed load is tolerated: the
// snapshot stays invalidated and the next quota read denies until a load
// succeeds, which degrades safely rather than over-granting.
func (m *Manager) refreshEntitlements(ctx context.Context) {
	m.ent.Invalidate()
	if _, err := m.ent.Load(ctx, m.userID); err != nil {
		m.logger.Warn("entitlement refresh failed after mutation",
			slog.String("userID", m.userID),
			slog.String("error", err.Error()),
		)
	}
}

// find returns a copy of the cached document. Callers must hold m.mu.
func (m *Manager) find(id string) (model.Document, bool) {
	for _, d := range m.cache {
		if d.ID == id {
			return d, true
		}
	}
	return model.Document{}, false
}

func (m *Manager) snapshot() []model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Document, len(m.cache))
	copy(out, m.cache)
	return out
}
