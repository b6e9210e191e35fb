// Package server is the composition root: it wires the record store, change
// feed, services, and handlers together, defines every route, and owns the
// process lifecycle from listen to graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/docuflow/internal/adminsession"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/changefeed"
	"github.com/sakif/docuflow/internal/config"
	"github.com/sakif/docuflow/internal/handler"
	"github.com/sakif/docuflow/internal/middleware"
	sqliteRepo "github.com/sakif/docuflow/internal/repository/sqlite"
	"github.com/sakif/docuflow/internal/service"
	"github.com/sakif/docuflow/internal/workspace"
)

// Server owns the router and every long-lived resource behind it. Start
// blocks until shutdown and releases them in reverse order of creation.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	feed    *changefeed.Feed
	console *service.AdminConsole
}

// New assembles the full dependency chain. Handlers receive services,
// services receive repository interfaces, and only this package sees the
// concrete types.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	feed := changefeed.New(logger)

	db, err := sqliteRepo.New(cfg.Database.Path, feed)
	if err != nil {
		feed.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
		feed:   feed,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		feed.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// User authentication stack.
	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	google := auth.NewGoogleProvider(
		s.cfg.Auth.GoogleClientID,
		s.cfg.Auth.GoogleClientSecret,
		s.cfg.Auth.GoogleCallbackURL,
	)

	// Admin session guard over the persisted local record.
	sessionStore, err := adminsession.NewFileStore(s.cfg.Admin.SessionFile)
	if err != nil {
		return fmt.Errorf("creating admin session store: %w", err)
	}
	guard := adminsession.NewGuard(sessionStore, nil, s.logger)

	// Services. The sqlite DB satisfies every repository interface.
	workspaces := workspace.NewRegistry(s.db, s.db, nil, s.logger)
	blogService := service.NewBlogService(s.db, s.logger)
	userService := service.NewUserAdminService(s.db, s.logger)
	adminAuth := service.NewAdminAuthService(s.db, auth.NewPasswordService(), guard, s.logger)
	s.console = service.NewAdminConsole(
		s.db, s.db, s.feed,
		sqliteRepo.TableProfiles, sqliteRepo.TableBlogs,
		s.logger,
	)

	// Handlers.
	authHandler := handler.NewAuthHandler(google, tokens, s.db, workspaces, s.logger)
	docHandler := handler.NewDocumentHandler(workspaces, s.logger)
	subHandler := handler.NewSubscriptionHandler(workspaces, s.logger)
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	adminHandler := handler.NewAdminHandler(adminAuth, userService, blogService, s.console, s.logger)
	feedHandler := handler.NewFeedHandler(s.feed,
		[]string{sqliteRepo.TableProfiles, sqliteRepo.TableBlogs}, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// OAuth flow and sign-out.
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.With(auth.RequireAuth(tokens)).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public surface.
		r.Get("/blogs", blogHandler.HandleList)
		r.Get("/blogs/{id}", blogHandler.HandleGet)

		// Signed-in users.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/me/subscription", subHandler.HandleGet)

			r.Get("/documents", docHandler.HandleList)
			r.Post("/documents", docHandler.HandleCreate)
			r.Put("/documents/{id}", docHandler.HandleUpdate)
			r.Delete("/documents/{id}", docHandler.HandleDelete)
		})

		// Operator console.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.HandleLogin)
			r.Post("/logout", adminHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(adminHandler.RequireAdmin)

				r.Get("/session", adminHandler.HandleSession)
				r.Get("/feed", feedHandler.HandleFeed)

				r.Get("/users", adminHandler.HandleListUsers)
				r.Post("/users", adminHandler.HandleCreateUser)
				r.Put("/users/{id}", adminHandler.HandleUpdateUser)
				r.Delete("/users/{id}", adminHandler.HandleDeleteUser)

				r.Get("/blogs", adminHandler.HandleListBlogs)
				r.Post("/blogs", adminHandler.HandleCreateBlog)
				r.Put("/blogs/{id}", adminHandler.HandleUpdateBlog)
				r.Delete("/blogs/{id}", adminHandler.HandleDeleteBlog)
			})
		})
	})

	return nil
}

// Start activates the console mirrors, serves until SIGINT or SIGTERM, then
// shuts everything down: HTTP first so in-flight requests finish, then the
// console listeners, the feed, and finally the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.feed.Close()

	if err := s.console.Start(context.Background()); err != nil {
		return fmt.Errorf("starting admin console: %w", err)
	}
	defer s.console.Stop()

	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
