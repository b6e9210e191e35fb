package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

const MaxBlogTitleLength = 200

// BlogService manages marketing-site articles. The public surface sees only
// published posts; the admin console sees everything.
type BlogService struct {
	blogs  repository.BlogRepository
	logger *slog.Logger
}

func NewBlogService(blogs repository.BlogRepository, logger *slog.Logger) *BlogService {
	return &BlogService{
		blogs:  blogs,
		logger: logger,
	}
}

// ListPublished returns the publicly visible posts, newest first.
func (s *BlogService) ListPublished(ctx context.Context) ([]model.BlogPost, error) {
	posts, err := s.blogs.ListBlogs(ctx, true)
	if err != nil {
		s.logger.Error("failed to list published posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/blog: %w", apperror.Transient("loading blog posts", err))
	}
	return posts, nil
}

// ListAll returns every post including drafts. Admin only.
func (s *BlogService) ListAll(ctx context.Context) ([]model.BlogPost, error) {
	posts, err := s.blogs.ListBlogs(ctx, false)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/blog: %w", apperror.Transient("loading blog posts", err))
	}
	return posts, nil
}

// Get returns one post by id, drafts included.
func (s *BlogService) Get(ctx context.Context, id string) (*model.BlogPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "blog post ID is required")
	}
	return s.blogs.GetBlogByID(ctx, id)
}

// Create adds a post, published or draft.
func (s *BlogService) Create(ctx context.Context, title, excerpt, content string, published bool) (*model.BlogPost, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "blog post title is required")
	}
	if len(title) > MaxBlogTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("blog post title must be %d characters or less", MaxBlogTitleLength))
	}

	post := &model.BlogPost{
		Title:     title,
		Excerpt:   strings.TrimSpace(excerpt),
		Content:   content,
		Published: published,
	}
	if err := s.blogs.CreateBlog(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("blog post created",
		slog.String("id", post.ID),
		slog.Bool("published", published),
	)

	return post, nil
}

// Update rewrites a post, including its publish flag.
func (s *BlogService) Update(ctx context.Context, id, title, excerpt, content string, published bool) (*model.BlogPost, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "blog post title is required")
	}
	if len(title) > MaxBlogTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("blog post title must be %d characters or less", MaxBlogTitleLength))
	}

	post, err := s.blogs.GetBlogByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Excerpt = strings.TrimSpace(excerpt)
	post.Content = content
	post.Published = published

	if err := s.blogs.UpdateBlog(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("blog post updated", slog.String("id", id))

	return post, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "blog post ID is required")
	}
	if err := s.blogs.DeleteBlog(ctx, id); err != nil {
		return err
	}
	s.logger.Info("blog post deleted", slog.String("id", id))
	return nil
}
