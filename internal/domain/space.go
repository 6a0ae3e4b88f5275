package domain

import (
	"context"
	"time"
)

// Space is a content group users can subscribe to. Every new user is
// subscribed to all spaces flagged as default.
type Space struct {
	ID          int64
	Name        string
	Description string
	IsDefault   bool
	CreatedAt   time.Time
}

// Subscription links a user to a space.
type Subscription struct {
	ID        int64
	UserID    int64
	SpaceID   int64
	CreatedAt time.Time
}

type SpaceRepository interface {
	Create(ctx context.Context, space *Space) error
	GetByName(ctx context.Context, name string) (*Space, error)
	ListDefault(ctx context.Context) ([]Space, error)
	SetDefault(ctx context.Context, id int64, isDefault bool) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	ListByUser(ctx context.Context, userID int64) ([]Subscription, error)
}
