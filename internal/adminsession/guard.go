package adminsession

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/docuflow/internal/apperror"
)

// TTL is how long an admin session stays valid after login. The check runs
// on every access, not only at creation.
const TTL = 24 * time.Hour

// Guard validates, creates, and destroys the stored admin session.
//
// Expiry has erase-on-detect semantics: the first Validate that finds the
// session past its TTL removes the stored record, so a later Validate
// reports NoSession rather than Expired again. The injected clock makes
// that behaviour testable without real time passing.
type Guard struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

// NewGuard creates a guard over the given store. A nil clock defaults to
// time.Now.
func NewGuard(store Store, now func() time.Time, logger *slog.Logger) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		store:  store,
		now:    now,
		logger: logger,
	}
}

// Validate returns the stored session if it exists and is within its TTL.
// It fails with NoSession when nothing is stored and with SessionExpired
// when the TTL has lapsed, erasing the stored record in the latter case.
func (g *Guard) Validate() (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.store.Read()
	if err != nil {
		return nil, fmt.Errorf("adminsession: %w", apperror.Transient("reading admin session", err))
	}
	if s == nil {
		return nil, apperror.NoSession()
	}

	loginAt := time.UnixMilli(s.LoginTime)
	if g.now().Sub(loginAt) >= TTL {
		if err := g.store.Clear(); err != nil {
			g.logger.Warn("failed to erase expired admin session",
				slog.String("error", err.Error()))
		}
		g.logger.Info("admin session expired",
			slog.String("email", s.Email),
			slog.Time("loginAt", loginAt),
		)
		return nil, apperror.SessionExpired()
	}

	return s, nil
}

// Create writes a new session stamped with the current clock time,
// unconditionally overwriting any prior session.
func (g *Guard) Create(adminID, email, fullName string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := &Session{
		ID:        adminID,
		Email:     email,
		FullName:  fullName,
		LoginTime: g.now().UnixMilli(),
	}
	if err := g.store.Write(s); err != nil {
		return nil, fmt.Errorf("adminsession: %w", apperror.Transient("storing admin session", err))
	}

	g.logger.Info("admin session created", slog.String("email", email))

	return s, nil
}

// Destroy erases the stored session. Destroying an absent session is fine.
func (g *Guard) Destroy() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Clear(); err != nil {
		return fmt.Errorf("adminsession: %w", apperror.Transient("clearing admin session", err))
	}
	return nil
}
