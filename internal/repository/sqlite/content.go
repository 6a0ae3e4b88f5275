package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/msomdec/updog/internal/domain"
)

// ContentRepository stores posts and comments.
type ContentRepository struct {
	db *sql.DB
}

func (r *ContentRepository) CreatePost(ctx context.Context, post *domain.Post) error {
	var spaceID sql.NullInt64
	if post.SpaceID != 0 {
		spaceID = sql.NullInt64{Int64: post.SpaceID, Valid: true}
	}

	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO posts (user_id, space_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		post.UserID, spaceID, post.Title, post.Body, now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	post.ID = id
	post.Upvotes, post.Downvotes = 0, 0
	post.CreatedAt = now
	return nil
}

func (r *ContentRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO comments (user_id, post_id, body, created_at) VALUES (?, ?, ?, ?)`,
		comment.UserID, comment.PostID, comment.Body, now,
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	comment.ID = id
	comment.Upvotes, comment.Downvotes = 0, 0
	comment.CreatedAt = now
	return nil
}
