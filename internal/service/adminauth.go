// Package service contains the business logic layer: admin console
// authentication, user and blog management, and the console's live mirror
// of the record store. Handlers parse HTTP and delegate here; repositories
// do the SQL. Services know about neither.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/docuflow/internal/adminsession"
	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/repository"
)

// AdminAuthService authenticates console operators against the admin_users
// table and manages the guarded local session.
type AdminAuthService struct {
	admins    repository.AdminUserRepository
	passwords *auth.PasswordService
	guard     *adminsession.Guard
	logger    *slog.Logger
}

func NewAdminAuthService(
	admins repository.AdminUserRepository,
	passwords *auth.PasswordService,
	guard *adminsession.Guard,
	logger *slog.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		admins:    admins,
		passwords: passwords,
		guard:     guard,
		logger:    logger,
	}
}

// Login verifies the credentials and creates the admin session. An unknown
// email and a wrong password produce the same denial, so the response does
// not reveal which admin accounts exist.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*adminsession.Session, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	admin, err := s.admins.GetAdminUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("admin login with unknown email", slog.String("email", email))
			return nil, apperror.AccessDenied("invalid credentials")
		}
		return nil, fmt.Errorf("service/adminauth: %w", apperror.Transient("verifying admin login", err))
	}

	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		s.logger.Warn("admin login with wrong password", slog.String("email", email))
		return nil, apperror.AccessDenied("invalid credentials")
	}

	session, err := s.guard.Create(admin.ID, admin.Email, admin.FullName)
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin logged in", slog.String("email", admin.Email))

	return session, nil
}

// Session validates and returns the current admin session. Expired sessions
// are erased by the guard as a side effect of detection.
func (s *AdminAuthService) Session() (*adminsession.Session, error) {
	return s.guard.Validate()
}

// Logout destroys the stored admin session. Idempotent.
func (s *AdminAuthService) Logout() error {
	if err := s.guard.Destroy(); err != nil {
		return err
	}
	s.logger.Info("admin logged out")
	return nil
}
