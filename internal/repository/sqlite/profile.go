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

var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, email, full_name, subscription_tier,
	subscription_start, subscription_end, document_count, created_at, updated_at`

// CreateProfile inserts a new account row. Email collisions are reported as
// conflicts so the caller can distinguish "already registered" from a store
// failure.
func (db *DB) CreateProfile(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	if p.SubscriptionTier == "" {
		p.SubscriptionTier = model.TierFree
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.DocumentCount = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, subscription_tier,
		                       subscription_start, subscription_end, document_count,
		                       created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ID, p.Email, p.FullName, string(p.SubscriptionTier),
		nullableTime(p.SubscriptionStart), nullableTime(p.SubscriptionEnd),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("profile", p.Email)
		}
		return fmt.Errorf("sqlite: inserting profile: %w", err)
	}

	db.publish(TableProfiles, changefeed.Insert)

	return nil
}

func (db *DB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching profile %s: %w", id, err)
	}
	return p, nil
}

func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching profile by email: %w", err)
	}
	return p, nil
}

// ListProfiles returns every profile, newest account first.
func (db *DB) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profile rows: %w", err)
	}

	return profiles, nil
}

// UpdateProfile rewrites the mutable profile fields. document_count
// deliberately stays out of this statement, the document store owns it.
func (db *DB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles
		 SET full_name = ?, subscription_tier = ?,
		     subscription_start = ?, subscription_end = ?, updated_at = ?
		 WHERE id = ?`,
		p.FullName, string(p.SubscriptionTier),
		nullableTime(p.SubscriptionStart), nullableTime(p.SubscriptionEnd),
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("profile", p.ID)
	}

	db.publish(TableProfiles, changefeed.Update)

	return nil
}

// DeleteProfile removes an account row along with its documents.
func (db *DB) DeleteProfile(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var docsRemoved int64
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting profile documents: %w", err)
	}
	docsRemoved, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting profile %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("profile", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing profile delete: %w", err)
	}

	if docsRemoved > 0 {
		db.publish(TableDocuments, changefeed.Delete)
	}
	db.publish(TableProfiles, changefeed.Delete)

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*model.Profile, error) {
	var (
		p     model.Profile
		tier  string
		start sql.NullTime
		end   sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &tier,
		&start, &end, &p.DocumentCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.SubscriptionTier = model.Tier(tier)
	if start.Valid {
		t := start.Time
		p.SubscriptionStart = &t
	}
	if end.Valid {
		t := end.Time
		p.SubscriptionEnd = &t
	}
	return &p, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
