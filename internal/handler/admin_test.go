package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/docuflow/internal/adminsession"
	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/service"
)

type fakeAdminRepo struct {
	admins map[string]*model.AdminUser
}

func (f *fakeAdminRepo) CreateAdminUser(_ context.Context, admin *model.AdminUser) error {
	f.admins[admin.Email] = admin
	return nil
}

func (f *fakeAdminRepo) GetAdminUserByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	admin, ok := f.admins[email]
	if !ok {
		return nil, apperror.NotFound("admin user", email)
	}
	return admin, nil
}

type fakeProfileRepo struct{}

func (fakeProfileRepo) CreateProfile(context.Context, *model.Profile) error { return nil }
func (fakeProfileRepo) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	return nil, apperror.NotFound("profile", id)
}
func (fakeProfileRepo) GetProfileByEmail(_ context.Context, email string) (*model.Profile, error) {
	return nil, apperror.NotFound("profile", email)
}
func (fakeProfileRepo) ListProfiles(context.Context) ([]model.Profile, error) {
	return []model.Profile{{ID: "user-1", Email: "user@example.com"}}, nil
}
func (fakeProfileRepo) UpdateProfile(context.Context, *model.Profile) error { return nil }
func (fakeProfileRepo) DeleteProfile(context.Context, string) error         { return nil }

type fakeBlogRepo struct{}

func (fakeBlogRepo) CreateBlog(context.Context, *model.BlogPost) error { return nil }
func (fakeBlogRepo) GetBlogByID(_ context.Context, id string) (*model.BlogPost, error) {
	return nil, apperror.NotFound("blog post", id)
}
func (fakeBlogRepo) ListBlogs(context.Context, bool) ([]model.BlogPost, error) {
	return []model.BlogPost{}, nil
}
func (fakeBlogRepo) UpdateBlog(context.Context, *model.BlogPost) error { return nil }
func (fakeBlogRepo) DeleteBlog(context.Context, string) error          { return nil }

// newAdminTestRouter wires the console routes over fakes, with a movable
// clock behind the session guard.
func newAdminTestRouter(t *testing.T) (*chi.Mux, *time.Time) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	passwords := auth.NewPasswordServiceForTest(4)

	hash, err := passwords.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	admins := &fakeAdminRepo{admins: map[string]*model.AdminUser{
		"ops@example.com": {ID: "admin-1", Email: "ops@example.com", PasswordHash: hash},
	}}

	store, err := adminsession.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	clock := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	guard := adminsession.NewGuard(store, func() time.Time { return clock }, logger)

	adminAuth := service.NewAdminAuthService(admins, passwords, guard, logger)
	users := service.NewUserAdminService(fakeProfileRepo{}, logger)
	blogs := service.NewBlogService(fakeBlogRepo{}, logger)
	console := service.NewAdminConsole(fakeProfileRepo{}, fakeBlogRepo{}, nil, "profiles", "blogs", logger)

	h := NewAdminHandler(adminAuth, users, blogs, console, logger)

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/session", h.HandleSession)
			r.Get("/users", h.HandleListUsers)
		})
	})
	return r, &clock
}

func TestAdminLoginFlow(t *testing.T) {
	r, _ := newAdminTestRouter(t)

	// No session yet: the guarded route answers 401 no_session.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "no_session", body.Error)

	// Wrong credentials are denied without detail.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"ops@example.com","password":"guess"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Right credentials create the session.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"ops@example.com","password":"correct-password"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var session adminsession.Session
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	assert.Equal(t, "admin-1", session.ID)

	// The guarded routes now answer.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Logout tears it back down.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSession_ExpiresAfterTTL(t *testing.T) {
	r, clock := newAdminTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"ops@example.com","password":"correct-password"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	*clock = clock.Add(adminsession.TTL + time.Minute)

	// First access past the TTL reports the expiry.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "session_expired", body.Error)

	// The record was erased on detection, so the next access has no session.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/session", nil))
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "no_session", body.Error)
}
