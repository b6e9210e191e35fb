package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/changefeed"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

var _ repository.AdminUserRepository = (*DB)(nil)

// CreateAdminUser inserts a console operator account. Used by deployment
// seeding and by tests; there is no self-service admin signup.
func (db *DB) CreateAdminUser(ctx context.Context, admin *model.AdminUser) error {
	if admin.PasswordHash == "" {
		return apperror.ValidationFailed("passwordHash", "admin password hash is required")
	}

	admin.ID = xid.New().String()
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admin_users (id, email, full_name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		admin.ID, admin.Email, admin.FullName, admin.PasswordHash,
		admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("admin user", admin.Email)
		}
		return fmt.Errorf("sqlite: inserting admin user: %w", err)
	}

	db.publish(TableAdminUsers, changefeed.Insert)

	return nil
}

func (db *DB) GetAdminUserByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var admin model.AdminUser
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, created_at, updated_at
		 FROM admin_users WHERE email = ?`,
		email,
	).Scan(&admin.ID, &admin.Email, &admin.FullName, &admin.PasswordHash,
		&admin.CreatedAt, &admin.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("admin user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching admin user: %w", err)
	}

	return &admin, nil
}
