package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/updog/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

const userColumns = `id, username, email, password_hash, comment_karma, post_karma, is_admin, joined_date, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, comment_karma, post_karma, is_admin, joined_date, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, nullString(user.Email), user.PasswordHash,
		user.CommentKarma, user.PostKarma, user.IsAdmin, now, now,
	)
	if err != nil {
		if cerr := userCollision(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	user.ID = id
	user.JoinedDate = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByUsername matches without regard to case.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, "email", email)
}

// Update persists the profile fields of user. The joined date and karma are
// left alone; karma is only written by VoteRepository.SaveTallies.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users
		 SET email = ?, password_hash = ?, is_admin = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(user.Email), user.PasswordHash, user.IsAdmin, now, user.ID,
	)
	if err != nil {
		if cerr := userCollision(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("update user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	user.UpdatedAt = now
	return nil
}

// column is one of a fixed set of names and never user input.
func (r *UserRepository) getOne(ctx context.Context, column string, value any) (*domain.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by %s: %w", column, err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var email sql.NullString
	err := row.Scan(&user.ID, &user.Username, &email, &user.PasswordHash,
		&user.CommentKarma, &user.PostKarma, &user.IsAdmin, &user.JoinedDate, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	return user, nil
}

// userCollision maps a UNIQUE violation on the users table to the matching
// domain error. It returns nil for any other error.
func userCollision(err error) error {
	col, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch col {
	case "users.email":
		return domain.ErrEmailInUse
	default:
		return domain.ErrUsernameInUse
	}
}
