// Package repository declares the interfaces the record store must satisfy.
//
// Services depend on these interfaces, never on the sqlite package directly,
// so the data layer stays swappable and service tests run against in-memory
// fakes. Documents are the primary entity and keep the short method names;
// the other entities carry their name in the method, since one store type
// implements all four interfaces.
package repository

import (
	"context"

	"github.com/sakif/docuflow/internal/model"
)

// DocumentRepository is the table-scoped CRUD boundary for documents.
//
// Every read and mutation is filtered by the owner's identity: passing an
// ownerID that does not match the row yields apperror.ErrAccessDenied, the
// same way a row-level security policy would reject the query server-side.
type DocumentRepository interface {
	// Create inserts the document and fills in ID and timestamps. The
	// store is the final quota authority: if the owner's account is at its
	// ceiling at commit time, Create fails with apperror.ErrQuotaExceeded
	// regardless of what the caller's cached snapshot said.
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id, ownerID string) (*model.Document, error)
	// ListByOwner returns the owner's documents ordered by updated_at
	// descending (most recently touched first).
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)
	// Update rewrites title and content and bumps updated_at. OwnerID is
	// immutable; the row is matched on (id, owner_id).
	Update(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, id, ownerID string) error
}

// ProfileRepository manages user account rows and their subscription facts.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	// ListProfiles returns all profiles ordered by created_at descending.
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	// UpdateProfile rewrites full name and subscription fields.
	// DocumentCount is maintained by the document store, not through this
	// method.
	UpdateProfile(ctx context.Context, p *model.Profile) error
	DeleteProfile(ctx context.Context, id string) error
}

// BlogRepository manages blog posts.
type BlogRepository interface {
	CreateBlog(ctx context.Context, post *model.BlogPost) error
	GetBlogByID(ctx context.Context, id string) (*model.BlogPost, error)
	// ListBlogs returns posts ordered by created_at descending. With
	// publishedOnly set, drafts are excluded.
	ListBlogs(ctx context.Context, publishedOnly bool) ([]model.BlogPost, error)
	UpdateBlog(ctx context.Context, post *model.BlogPost) error
	DeleteBlog(ctx context.Context, id string) error
}

// AdminUserRepository manages console operator accounts.
type AdminUserRepository interface {
	CreateAdminUser(ctx context.Context, admin *model.AdminUser) error
	GetAdminUserByEmail(ctx context.Context, email string) (*model.AdminUser, error)
}
