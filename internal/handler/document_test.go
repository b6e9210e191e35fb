package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/entitlement"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/workspace"
)

// fakeDocStore backs the workspace registry in handler tests. It enforces
// the free quota on insert, mirroring the real store's behaviour.
type fakeDocStore struct {
	docs   map[string]*model.Document
	nextID int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]*model.Document)}
}

func (f *fakeDocStore) countFor(ownerID string) int {
	n := 0
	for _, d := range f.docs {
		if d.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (f *fakeDocStore) Create(_ context.Context, doc *model.Document) error {
	if count := f.countFor(doc.OwnerID); count >= entitlement.FreeTierDocumentLimit {
		return apperror.QuotaExceeded(count, entitlement.FreeTierDocumentLimit)
	}
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocStore) GetByID(_ context.Context, id, ownerID string) (*model.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, apperror.NotFound("document", id)
	}
	if d.OwnerID != ownerID {
		return nil, apperror.AccessDenied("document belongs to another account")
	}
	result := *d
	return &result, nil
}

func (f *fakeDocStore) ListByOwner(_ context.Context, ownerID string) ([]model.Document, error) {
	result := []model.Document{}
	for _, d := range f.docs {
		if d.OwnerID == ownerID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (f *fakeDocStore) Update(_ context.Context, doc *model.Document) error {
	d, ok := f.docs[doc.ID]
	if !ok {
		return apperror.NotFound("document", doc.ID)
	}
	if d.OwnerID != doc.OwnerID {
		return apperror.AccessDenied("document belongs to another account")
	}
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocStore) Delete(_ context.Context, id, ownerID string) error {
	d, ok := f.docs[id]
	if !ok {
		return apperror.NotFound("document", id)
	}
	if d.OwnerID != ownerID {
		return apperror.AccessDenied("document belongs to another account")
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocStore) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	return &model.Profile{
		ID:               id,
		SubscriptionTier: model.TierFree,
		DocumentCount:    f.countFor(id),
	}, nil
}

// newDocumentTestRouter wires the document routes behind real JWT auth, the
// way the server does.
func newDocumentTestRouter(t *testing.T) (*chi.Mux, *auth.TokenService, *fakeDocStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := newFakeDocStore()
	registry := workspace.NewRegistry(store, store, nil, logger)
	h := NewDocumentHandler(registry, logger)

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/documents", h.HandleList)
		r.Post("/api/documents", h.HandleCreate)
		r.Put("/api/documents/{id}", h.HandleUpdate)
		r.Delete("/api/documents/{id}", h.HandleDelete)
	})
	return r, tokens, store
}

func authedRequest(t *testing.T, tokens *auth.TokenService, method, target, body string) *http.Request {
	t.Helper()
	token, err := tokens.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: token})
	return req
}

func TestDocumentRoutes_RequireAuthentication(t *testing.T) {
	r, _, _ := newDocumentTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocumentCreateAndList(t *testing.T) {
	r, tokens, _ := newDocumentTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPost, "/api/documents",
		`{"title":"notes","content":"hello"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created model.Document
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "notes", created.Title)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodGet, "/api/documents", ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	var docs []model.Document
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	assert.Len(t, docs, 1)
}

func TestDocumentCreate_QuotaMapsToPaymentRequired(t *testing.T) {
	r, tokens, _ := newDocumentTestRouter(t)

	for i := 0; i < entitlement.FreeTierDocumentLimit; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPost, "/api/documents",
			fmt.Sprintf(`{"title":"doc %d","content":""}`, i)))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPost, "/api/documents",
		`{"title":"one too many","content":""}`))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "quota_exceeded", body.Error)
}

func TestDocumentCreate_InvalidBody(t *testing.T) {
	r, tokens, _ := newDocumentTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPost, "/api/documents", `{broken`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentDelete_RequiresConfirmation(t *testing.T) {
	r, tokens, _ := newDocumentTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPost, "/api/documents",
		`{"title":"condemned","content":""}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	var created model.Document
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	// Without confirm the delete is rejected and the document survives.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodDelete, "/api/documents/"+created.ID, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodGet, "/api/documents", ""))
	var docs []model.Document
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	assert.Len(t, docs, 1)

	// With confirm it goes through.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodDelete,
		"/api/documents/"+created.ID+"?confirm=true", ""))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A second confirmed delete of the same id is NotFound.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodDelete,
		"/api/documents/"+created.ID+"?confirm=true", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentUpdate_StaleIDIsNotFound(t *testing.T) {
	r, tokens, _ := newDocumentTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, tokens, http.MethodPut, "/api/documents/never-seen",
		`{"title":"new","content":""}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
