package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/service"
)

// BlogHandler serves the public blog surface. Drafts never leave this
// handler; the admin console has its own routes for those.
type BlogHandler struct {
	blogs  *service.BlogService
	logger *slog.Logger
}

func NewBlogHandler(blogs *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		blogs:  blogs,
		logger: logger,
	}
}

// HandleList returns published posts, newest first.
//
// HTTP: GET /api/blogs
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blogs.ListPublished(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one published post. Drafts answer 404 here so their
// existence is not observable from the public surface.
//
// HTTP: GET /api/blogs/{id}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	post, err := h.blogs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !post.Published {
		writeError(w, apperror.NotFound("blog post", id))
		return
	}

	writeJSON(w, http.StatusOK, post)
}
