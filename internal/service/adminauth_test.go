package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/docuflow/internal/adminsession"
	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/model"
)

// mockAdminRepo holds operator accounts keyed by email.
type mockAdminRepo struct {
	admins   map[string]*model.AdminUser
	failWith error
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: make(map[string]*model.AdminUser)}
}

func (m *mockAdminRepo) CreateAdminUser(_ context.Context, admin *model.AdminUser) error {
	stored := *admin
	m.admins[admin.Email] = &stored
	return nil
}

func (m *mockAdminRepo) GetAdminUserByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	admin, ok := m.admins[email]
	if !ok {
		return nil, apperror.NotFound("admin user", email)
	}
	result := *admin
	return &result, nil
}

func serviceTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAdminAuth(t *testing.T) (*AdminAuthService, *mockAdminRepo, *auth.PasswordService) {
	t.Helper()

	repo := newMockAdminRepo()
	passwords := auth.NewPasswordServiceForTest(4)

	store, err := adminsession.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	guard := adminsession.NewGuard(store, nil, serviceTestLogger())

	return NewAdminAuthService(repo, passwords, guard, serviceTestLogger()), repo, passwords
}

func seedAdmin(t *testing.T, repo *mockAdminRepo, passwords *auth.PasswordService, email, password string) {
	t.Helper()
	hash, err := passwords.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	err = repo.CreateAdminUser(context.Background(), &model.AdminUser{
		ID:           "admin-1",
		Email:        email,
		FullName:     "Op Erator",
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("seed admin error = %v", err)
	}
}

func TestAdminLogin_Success(t *testing.T) {
	svc, repo, passwords := newTestAdminAuth(t)
	seedAdmin(t, repo, passwords, "ops@example.com", "hunter2hunter2")

	session, err := svc.Login(context.Background(), "ops@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.Email != "ops@example.com" || session.ID != "admin-1" {
		t.Errorf("session = %+v", session)
	}
	if session.LoginTime == 0 {
		t.Error("session should carry a login timestamp")
	}

	// The session is now retrievable.
	got, err := svc.Session()
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got.Email != session.Email {
		t.Errorf("Session() = %+v, want the logged-in session", got)
	}
}

func TestAdminLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	svc, repo, passwords := newTestAdminAuth(t)
	seedAdmin(t, repo, passwords, "ops@example.com", "hunter2hunter2")

	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", "whatever")
	_, wrongErr := svc.Login(context.Background(), "ops@example.com", "not-the-password")

	for name, err := range map[string]error{"unknown email": unknownErr, "wrong password": wrongErr} {
		if !errors.Is(err, apperror.ErrAccessDenied) {
			t.Errorf("%s: error = %v, want ErrAccessDenied", name, err)
		}
	}

	// Same denial either way, so the response does not reveal which admin
	// accounts exist.
	var unknownApp, wrongApp *apperror.AppError
	if errors.As(unknownErr, &unknownApp) && errors.As(wrongErr, &wrongApp) {
		if unknownApp.Message != wrongApp.Message {
			t.Errorf("denial messages differ: %q vs %q", unknownApp.Message, wrongApp.Message)
		}
	}
}

func TestAdminLogin_EmptyCredentials(t *testing.T) {
	svc, _, _ := newTestAdminAuth(t)

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty email error = %v, want ErrValidation", err)
	}
	if _, err := svc.Login(context.Background(), "a@b.c", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty password error = %v, want ErrValidation", err)
	}
}

func TestAdminLogin_StoreFailureIsTransient(t *testing.T) {
	svc, repo, _ := newTestAdminAuth(t)
	repo.failWith = errors.New("database is on fire")

	_, err := svc.Login(context.Background(), "ops@example.com", "pw")
	if !errors.Is(err, apperror.ErrTransient) {
		t.Errorf("error = %v, want ErrTransient", err)
	}
}

func TestAdminLogout_EndsSessionAndIsIdempotent(t *testing.T) {
	svc, repo, passwords := newTestAdminAuth(t)
	seedAdmin(t, repo, passwords, "ops@example.com", "hunter2hunter2")

	if _, err := svc.Login(context.Background(), "ops@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Session(); !errors.Is(err, apperror.ErrNoSession) {
		t.Errorf("Session() after logout = %v, want ErrNoSession", err)
	}
	if err := svc.Logout(); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
}

func TestAdminSession_ExpiryThroughService(t *testing.T) {
	repo := newMockAdminRepo()
	passwords := auth.NewPasswordServiceForTest(4)
	seedAdmin(t, repo, passwords, "ops@example.com", "hunter2hunter2")

	store, err := adminsession.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	clock := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	guard := adminsession.NewGuard(store, func() time.Time { return clock }, serviceTestLogger())
	svc := NewAdminAuthService(repo, passwords, guard, serviceTestLogger())

	if _, err := svc.Login(context.Background(), "ops@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	clock = clock.Add(adminsession.TTL + time.Minute)

	if _, err := svc.Session(); !errors.Is(err, apperror.ErrSessionExpired) {
		t.Errorf("Session() past TTL = %v, want ErrSessionExpired", err)
	}
	if _, err := svc.Session(); !errors.Is(err, apperror.ErrNoSession) {
		t.Errorf("Session() after expiry erase = %v, want ErrNoSession", err)
	}
}
