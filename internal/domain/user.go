package domain

import (
	"context"
	"strings"
	"time"
)

// User represents a registered forum account.
//
// Usernames are unique without regard to case; the stored value keeps the
// casing used at registration. Email is optional and, when present, unique.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CommentKarma int
	PostKarma    int
	IsAdmin      bool
	JoinedDate   time.Time
	UpdatedAt    time.Time
}

// View returns the public projection of the user.
func (u *User) View() UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		CommentKarma: u.CommentKarma,
		PostKarma:    u.PostKarma,
		IsAdmin:      u.IsAdmin,
		JoinedDate:   u.JoinedDate,
	}
}

// Apply copies the changes described by update onto the user.
// A blank email removes the user's address.
func (u *User) Apply(update UserUpdate) {
	u.Email = NormalizeEmail(update.Email)
}

// UserView is the public view of a user, safe to hand to other users.
type UserView struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	CommentKarma int       `json:"commentKarma"`
	PostKarma    int       `json:"postKarma"`
	IsAdmin      bool      `json:"isAdmin"`
	JoinedDate   time.Time `json:"joinedDate"`
}

// UserLogin is the result of a successful registration or login.
type UserLogin struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

type UserRegistration struct {
	Username string `validate:"required,username"`
	Email    string `validate:"omitempty,email,max=254"`
	Password string `validate:"required,pwd"`
}

type UserCredentials struct {
	Username string `validate:"required,max=24"`
	Password string `validate:"required,max=72"`
}

type UserUpdate struct {
	Email string `validate:"omitempty,email,max=254"`
}

type UserUpdatePassword struct {
	CurrentPassword string `validate:"required,max=72"`
	NewPassword     string `validate:"required,pwd"`
}

// AdminConfig describes the administrator account reconciled at startup.
type AdminConfig struct {
	Username string `validate:"required,username"`
	Password string `validate:"required,pwd"`
	Email    string `validate:"omitempty,email,max=254"`
}

// NormalizeEmail trims and lower-cases an email address. Blank input yields "".
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository defines persistence operations for users.
// Create and Update report storage-level uniqueness violations as
// ErrUsernameInUse or ErrEmailInUse. Update never changes JoinedDate or
// karma.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}
