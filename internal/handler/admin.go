package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/service"
)

// AdminHandler serves the operator console: login against the admin_users
// table, the guarded session, and user and blog management. List endpoints
// read from the console's live mirrors so the dashboard reflects changes
// made by any session without polling.
type AdminHandler struct {
	auth    *service.AdminAuthService
	users   *service.UserAdminService
	blogs   *service.BlogService
	console *service.AdminConsole
	logger  *slog.Logger
}

func NewAdminHandler(
	auth *service.AdminAuthService,
	users *service.UserAdminService,
	blogs *service.BlogService,
	console *service.AdminConsole,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:    auth,
		users:   users,
		blogs:   blogs,
		console: console,
		logger:  logger,
	}
}

// RequireAdmin gates console routes on a valid, unexpired admin session.
// An expired session has already been erased by the time the 401 goes out.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.auth.Session(); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates an operator and creates the admin session.
//
// HTTP: POST /api/admin/login
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleLogout destroys the admin session. Idempotent.
//
// HTTP: POST /api/admin/logout
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleSession returns the current admin session, validating its age.
//
// HTTP: GET /api/admin/session
func (h *AdminHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleListUsers returns every account from the console's live mirror.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.console.Users(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

type adminUserRequest struct {
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	Tier            model.Tier `json:"subscriptionTier"`
	SubscriptionEnd *time.Time `json:"subscriptionEnd"`
}

// HandleCreateUser adds an account with a chosen tier.
//
// HTTP: POST /api/admin/users
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	profile, err := h.users.Create(r.Context(), req.Email, req.FullName, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// HandleUpdateUser rewrites an account's name and subscription fields.
//
// HTTP: PUT /api/admin/users/{id}
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "user ID is required"))
		return
	}

	var req adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	profile, err := h.users.Update(r.Context(), id, req.FullName, req.Tier, req.SubscriptionEnd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleDeleteUser removes an account and its documents.
//
// HTTP: DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "user ID is required"))
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListBlogs returns every post, drafts included, from the console's
// live mirror.
//
// HTTP: GET /api/admin/blogs
func (h *AdminHandler) HandleListBlogs(w http.ResponseWriter, r *http.Request) {
	posts, err := h.console.Blogs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type adminBlogRequest struct {
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

// HandleCreateBlog adds a post.
//
// HTTP: POST /api/admin/blogs
func (h *AdminHandler) HandleCreateBlog(w http.ResponseWriter, r *http.Request) {
	var req adminBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.blogs.Create(r.Context(), req.Title, req.Excerpt, req.Content, req.Published)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdateBlog rewrites a post, including its publish flag.
//
// HTTP: PUT /api/admin/blogs/{id}
func (h *AdminHandler) HandleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "blog post ID is required"))
		return
	}

	var req adminBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.blogs.Update(r.Context(), id, req.Title, req.Excerpt, req.Content, req.Published)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDeleteBlog removes a post.
//
// HTTP: DELETE /api/admin/blogs/{id}
func (h *AdminHandler) HandleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "blog post ID is required"))
		return
	}

	if err := h.blogs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
