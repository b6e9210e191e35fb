package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/changefeed"
	"github.com/sakif/docuflow/internal/entitlement"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

var _ repository.DocumentRepository = (*DB)(nil)

// Create inserts a document and maintains the owner's document_count, all
// in one transaction. The quota check inside the transaction is the
// authoritative one: a free account already at the ceiling gets the quota
// sentinel here even if the caller's snapshot was stale, so two sessions
// racing near the boundary cannot overshoot it.
func (db *DB) Create(ctx context.Context, doc *model.Document) error {
	if doc.OwnerID == "" {
		return apperror.ValidationFailed("ownerId", "document owner is required")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		tier  string
		end   sql.NullTime
		count int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT subscription_tier, subscription_end,
		        (SELECT COUNT(*) FROM documents WHERE user_id = profiles.id)
		 FROM profiles WHERE id = ?`,
		doc.OwnerID,
	).Scan(&tier, &end, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.AccessDenied("document owner is not a known account")
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking document quota: %w", err)
	}

	snap := &entitlement.Snapshot{
		Tier:          model.Tier(tier),
		DocumentCount: count,
	}
	if end.Valid {
		snap.PeriodEnd = &end.Time
	}
	if !snap.CanCreateDocument(time.Now()) {
		return apperror.QuotaExceeded(count, entitlement.FreeTierDocumentLimit)
	}

	doc.ID = xid.New().String()
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, user_id, title, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET document_count = ?, updated_at = ? WHERE id = ?`,
		count+1, now, doc.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating document count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing document insert: %w", err)
	}

	db.publish(TableDocuments, changefeed.Insert)
	db.publish(TableProfiles, changefeed.Update)

	return nil
}

// GetByID fetches a document and verifies ownership. A row owned by someone
// else is an access violation, not a missing row.
func (db *DB) GetByID(ctx context.Context, id, ownerID string) (*model.Document, error) {
	var doc model.Document
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM documents WHERE id = ?`,
		id,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching document %s: %w", id, err)
	}

	if doc.OwnerID != ownerID {
		return nil, apperror.AccessDenied("document belongs to another account")
	}

	return &doc, nil
}

// ListByOwner returns the owner's documents, most recently updated first.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM documents WHERE user_id = ?
		 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing documents for %s: %w", ownerID, err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content,
			&doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating document rows: %w", err)
	}

	return docs, nil
}

// Update rewrites title and content and bumps updated_at. The row is
// located by id alone first so an ownership mismatch reports AccessDenied
// rather than masquerading as NotFound.
func (db *DB) Update(ctx context.Context, doc *model.Document) error {
	existing, err := db.GetByID(ctx, doc.ID, doc.OwnerID)
	if err != nil {
		return err
	}

	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE documents SET title = ?, content = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		doc.Title, doc.Content, doc.UpdatedAt, doc.ID, doc.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating document %s: %w", doc.ID, err)
	}

	db.publish(TableDocuments, changefeed.Update)

	return nil
}

// Delete removes a document and decrements the owner's document_count in
// the same transaction. Deleting a row that is already gone is NotFound.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	// Ownership check first, same as Update.
	if _, err := db.GetByID(ctx, id, ownerID); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting document %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("document", id)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE profiles
		 SET document_count = (SELECT COUNT(*) FROM documents WHERE user_id = ?),
		     updated_at = ?
		 WHERE id = ?`,
		ownerID, time.Now().UTC(), ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating document count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing document delete: %w", err)
	}

	db.publish(TableDocuments, changefeed.Delete)
	db.publish(TableProfiles, changefeed.Update)

	return nil
}
