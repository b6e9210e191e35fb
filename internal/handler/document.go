package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/workspace"
)

// DocumentHandler exposes the per-user document collection. Every route
// here sits behind RequireAuth; the handler resolves the caller's
// workspace manager from the registry and delegates.
type DocumentHandler struct {
	workspaces *workspace.Registry
	logger     *slog.Logger
}

func NewDocumentHandler(workspaces *workspace.Registry, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		workspaces: workspaces,
		logger:     logger,
	}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *DocumentHandler) manager(r *http.Request) (*workspace.Manager, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.workspaces.Get(userID), true
}

// HandleList reloads and returns the caller's documents, newest first.
//
// HTTP: GET /api/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(r)
	if !ok {
		writeError(w, apperror.NoSession())
		return
	}

	docs, err := mgr.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// HandleCreate adds a document, subject to the caller's quota.
//
// HTTP: POST /api/documents
// Body: {"title": "...", "content": "..."}
func (h *DocumentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(r)
	if !ok {
		writeError(w, apperror.NoSession())
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	// Load entitlements on first use so the quota check has a snapshot to
	// work from. Failure is tolerated; an absent snapshot denies creation.
	if mgr.Entitlements().Snapshot() == nil {
		if _, err := mgr.Entitlements().Load(r.Context(), mgr.UserID()); err != nil {
			h.logger.Warn("entitlement load failed before create",
				slog.String("userID", mgr.UserID()),
				slog.String("error", err.Error()),
			)
		}
	}

	doc, err := mgr.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// HandleUpdate rewrites a document's title and content.
//
// HTTP: PUT /api/documents/{id}
func (h *DocumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(r)
	if !ok {
		writeError(w, apperror.NoSession())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "document ID is required"))
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	doc, err := mgr.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// HandleDelete removes a document. Deletion is destructive, so the client
// must acknowledge it with confirm=true; requests without it are rejected
// before the store is touched.
//
// HTTP: DELETE /api/documents/{id}?confirm=true
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(r)
	if !ok {
		writeError(w, apperror.NoSession())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "document ID is required"))
		return
	}

	if workspace.DeleteRequiresConfirmation && r.URL.Query().Get("confirm") != "true" {
		writeError(w, apperror.ValidationFailed("confirm", "document deletion must be confirmed"))
		return
	}

	if err := mgr.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
