package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/changefeed"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

// AdminConsole keeps live mirrors of the collections the console displays:
// all accounts and all blog posts. A change-feed listener per table reloads
// the affected mirror whenever any session mutates it, so concurrent edits
// from users or other operators show up without polling.
//
// The mirrors are plain read caches. Events carry no trusted payload, so a
// reload always goes through the authoritative query, and each cache is
// swapped as a whole slice rather than patched in place.
type AdminConsole struct {
	profiles repository.ProfileRepository
	blogs    repository.BlogRepository
	logger   *slog.Logger

	userListener *changefeed.Listener
	blogListener *changefeed.Listener

	mu          sync.Mutex
	userMirror  []model.Profile
	blogMirror  []model.BlogPost
	userPrimed  bool
	blogPrimed  bool
}

// NewAdminConsole wires the console against the record store and feed. Call
// Start before serving and Stop on shutdown; Stop must run, or the
// console's subscriptions leak past its lifetime.
func NewAdminConsole(
	profiles repository.ProfileRepository,
	blogs repository.BlogRepository,
	feed changefeed.Source,
	userTable, blogTable string,
	logger *slog.Logger,
) *AdminConsole {
	c := &AdminConsole{
		profiles: profiles,
		blogs:    blogs,
		logger:   logger,
	}
	c.userListener = changefeed.NewListener(feed, userTable, changefeed.AllEvents, c.reloadUsers, logger)
	c.blogListener = changefeed.NewListener(feed, blogTable, changefeed.AllEvents, c.reloadBlogs, logger)
	return c
}

// Start primes both mirrors and activates the listeners.
func (c *AdminConsole) Start(ctx context.Context) error {
	if err := c.reloadUsers(ctx); err != nil {
		return fmt.Errorf("service/console: priming account mirror: %w", err)
	}
	if err := c.reloadBlogs(ctx); err != nil {
		return fmt.Errorf("service/console: priming blog mirror: %w", err)
	}

	if err := c.userListener.Start(); err != nil {
		return fmt.Errorf("service/console: watching accounts: %w", err)
	}
	if err := c.blogListener.Start(); err != nil {
		c.userListener.Stop()
		return fmt.Errorf("service/console: watching blog posts: %w", err)
	}

	c.logger.Info("admin console mirrors active")

	return nil
}

// Stop tears both listeners down deterministically.
func (c *AdminConsole) Stop() {
	c.userListener.Stop()
	c.blogListener.Stop()
}

// Users returns the mirrored account list. If the mirror was never primed
// (Start failed or has not run), it falls back to the authoritative query.
func (c *AdminConsole) Users(ctx context.Context) ([]model.Profile, error) {
	c.mu.Lock()
	primed := c.userPrimed
	mirror := make([]model.Profile, len(c.userMirror))
	copy(mirror, c.userMirror)
	c.mu.Unlock()

	if primed {
		return mirror, nil
	}

	if err := c.reloadUsers(ctx); err != nil {
		return nil, err
	}
	return c.Users(ctx)
}

// Blogs returns the mirrored post list, drafts included.
func (c *AdminConsole) Blogs(ctx context.Context) ([]model.BlogPost, error) {
	c.mu.Lock()
	primed := c.blogPrimed
	mirror := make([]model.BlogPost, len(c.blogMirror))
	copy(mirror, c.blogMirror)
	c.mu.Unlock()

	if primed {
		return mirror, nil
	}

	if err := c.reloadBlogs(ctx); err != nil {
		return nil, err
	}
	return c.Blogs(ctx)
}

func (c *AdminConsole) reloadUsers(ctx context.Context) error {
	profiles, err := c.profiles.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("%w", apperror.Transient("reloading accounts", err))
	}

	c.mu.Lock()
	c.userMirror = profiles
	c.userPrimed = true
	c.mu.Unlock()

	c.logger.Debug("account mirror reloaded", slog.Int("count", len(profiles)))

	return nil
}

func (c *AdminConsole) reloadBlogs(ctx context.Context) error {
	posts, err := c.blogs.ListBlogs(ctx, false)
	if err != nil {
		return fmt.Errorf("%w", apperror.Transient("reloading blog posts", err))
	}

	c.mu.Lock()
	c.blogMirror = posts
	c.blogPrimed = true
	c.mu.Unlock()

	c.logger.Debug("blog mirror reloaded", slog.Int("count", len(posts)))

	return nil
}
