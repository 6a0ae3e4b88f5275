package domain

import (
	"context"
	"time"
)

// Post is a top-level submission within a space.
type Post struct {
	ID        int64
	UserID    int64
	SpaceID   int64
	Title     string
	Body      string
	Upvotes   int
	Downvotes int
	CreatedAt time.Time
}

// Comment is a reply on a post.
type Comment struct {
	ID        int64
	UserID    int64
	PostID    int64
	Body      string
	Upvotes   int
	Downvotes int
	CreatedAt time.Time
}

type ContentRepository interface {
	CreatePost(ctx context.Context, post *Post) error
	CreateComment(ctx context.Context, comment *Comment) error
}
