package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/updog/internal/domain"
)

// SpaceRepository implements domain.SpaceRepository using SQLite.
type SpaceRepository struct {
	db *sql.DB
}

func (r *SpaceRepository) Create(ctx context.Context, space *domain.Space) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO spaces (name, description, is_default, created_at) VALUES (?, ?, ?, ?)`,
		space.Name, space.Description, space.IsDefault, now,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: space %q already exists", domain.ErrCollision, space.Name)
		}
		return fmt.Errorf("insert space: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	space.ID = id
	space.CreatedAt = now
	return nil
}

func (r *SpaceRepository) GetByName(ctx context.Context, name string) (*domain.Space, error) {
	s := &domain.Space{}
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, description, is_default, created_at FROM spaces WHERE name = ?`, name,
	).Scan(&s.ID, &s.Name, &s.Description, &s.IsDefault, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query space by name: %w", err)
	}
	return s, nil
}

// ListDefault returns the spaces every new user is subscribed to.
func (r *SpaceRepository) ListDefault(ctx context.Context) ([]domain.Space, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, description, is_default, created_at FROM spaces WHERE is_default = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list default spaces: %w", err)
	}
	defer rows.Close()

	var spaces []domain.Space
	for rows.Next() {
		var s domain.Space
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsDefault, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}

// SetDefault flags or unflags a space as default.
func (r *SpaceRepository) SetDefault(ctx context.Context, id int64, isDefault bool) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE spaces SET is_default = ? WHERE id = ?`, isDefault, id)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SubscriptionRepository implements domain.SubscriptionRepository using SQLite.
type SubscriptionRepository struct {
	db *sql.DB
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, space_id, created_at) VALUES (?, ?, ?)`,
		sub.UserID, sub.SpaceID, now,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: user %d already subscribed to space %d", domain.ErrCollision, sub.UserID, sub.SpaceID)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = now
	return nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, space_id, created_at FROM subscriptions WHERE user_id = ? ORDER BY space_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.SpaceID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
