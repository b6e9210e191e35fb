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
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
)

var _ repository.BlogRepository = (*DB)(nil)

func (db *DB) CreateBlog(ctx context.Context, post *model.BlogPost) error {
	post.ID = xid.New().String()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO blogs (id, title, excerpt, content, published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Excerpt, post.Content, post.Published,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting blog post: %w", err)
	}

	db.publish(TableBlogs, changefeed.Insert)

	return nil
}

func (db *DB) GetBlogByID(ctx context.Context, id string) (*model.BlogPost, error) {
	var post model.BlogPost
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, excerpt, content, published, created_at, updated_at
		 FROM blogs WHERE id = ?`,
		id,
	).Scan(&post.ID, &post.Title, &post.Excerpt, &post.Content,
		&post.Published, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("blog post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching blog post %s: %w", id, err)
	}

	return &post, nil
}

// ListBlogs returns posts newest first, optionally drafts excluded.
func (db *DB) ListBlogs(ctx context.Context, publishedOnly bool) ([]model.BlogPost, error) {
	query := `SELECT id, title, excerpt, content, published, created_at, updated_at
	          FROM blogs`
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blog posts: %w", err)
	}
	defer rows.Close()

	posts := []model.BlogPost{}
	for rows.Next() {
		var post model.BlogPost
		if err := rows.Scan(&post.ID, &post.Title, &post.Excerpt, &post.Content,
			&post.Published, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning blog row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating blog rows: %w", err)
	}

	return posts, nil
}

func (db *DB) UpdateBlog(ctx context.Context, post *model.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE blogs SET title = ?, excerpt = ?, content = ?, published = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title, post.Excerpt, post.Content, post.Published, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating blog post %s: %w", post.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("blog post", post.ID)
	}

	db.publish(TableBlogs, changefeed.Update)

	return nil
}

func (db *DB) DeleteBlog(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting blog post %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("blog post", id)
	}

	db.publish(TableBlogs, changefeed.Delete)

	return nil
}
