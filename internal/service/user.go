package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/msomdec/updog/internal/domain"
)

// UserStores groups the persistence collaborators of UserService.
type UserStores struct {
	Tx            domain.Transactor
	Users         domain.UserRepository
	Spaces        domain.SpaceRepository
	Subscriptions domain.SubscriptionRepository
}

// UserService handles registration, login, profile and password updates,
// and the administrator bootstrap.
type UserService struct {
	tx       domain.Transactor
	users    domain.UserRepository
	spaces   domain.SpaceRepository
	subs     domain.SubscriptionRepository
	hasher   domain.PasswordHasher
	tokens   domain.TokenIssuer
	events   domain.EventNotifier
	validate *Validator
	limiter  LoginLimiter

	dummyOnce sync.Once
	dummyHash string
}

// LoginLimiter throttles login attempts per key.
type LoginLimiter interface {
	Allow(key string) bool
}

// UserOption configures a UserService.
type UserOption func(*UserService)

// WithLoginLimiter throttles login attempts per username.
func WithLoginLimiter(l LoginLimiter) UserOption {
	return func(s *UserService) { s.limiter = l }
}

// NewUserService creates a new UserService.
func NewUserService(stores UserStores, hasher domain.PasswordHasher, tokens domain.TokenIssuer, events domain.EventNotifier, opts ...UserOption) *UserService {
	s := &UserService{
		tx:       stores.Tx,
		users:    stores.Users,
		spaces:   stores.Spaces,
		subs:     stores.Subscriptions,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		validate: NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account, subscribes it to every default space and
// returns a fresh login for it.
//
// The lookups below only produce a friendly error early. The store's unique
// constraints are what actually keep usernames and emails unique.
func (s *UserService) Register(ctx context.Context, reg domain.UserRegistration) (*domain.UserLogin, error) {
	reg.Email = domain.NormalizeEmail(reg.Email)
	if err := s.validate.Struct(reg); err != nil {
		return nil, err
	}

	email := reg.Email
	if email != "" {
		inUse, err := s.IsEmailInUse(ctx, email)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, domain.ErrEmailInUse
		}
	}

	available, err := s.IsUsernameAvailable(ctx, reg.Username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, domain.ErrUsernameInUse
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     reg.Username,
		Email:        email,
		PasswordHash: hash,
	}

	var login *domain.UserLogin
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		spaces, err := s.spaces.ListDefault(ctx)
		if err != nil {
			return fmt.Errorf("list default spaces: %w", err)
		}
		for _, space := range spaces {
			sub := &domain.Subscription{UserID: user.ID, SpaceID: space.ID}
			if err := s.subs.Create(ctx, sub); err != nil {
				return fmt.Errorf("subscribe to %s: %w", space.Name, err)
			}
		}

		// Issued before commit so a signing failure leaves no account behind.
		login, err = s.issueLogin(user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, domain.UserRegistered{User: user.View(), Login: *login})
	return login, nil
}

// Login returns a fresh login for valid credentials. An unknown username and
// a wrong password both yield (nil, nil) so callers cannot tell them apart.
// Throttled attempts fail with domain.ErrRateLimited before any lookup.
func (s *UserService) Login(ctx context.Context, creds domain.UserCredentials) (*domain.UserLogin, error) {
	if err := s.validate.Struct(creds); err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(strings.ToLower(creds.Username)) {
		slog.WarnContext(ctx, "login throttled", "username", creds.Username)
		return nil, domain.ErrRateLimited
	}

	user, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Spend the same hashing time as a real check.
			s.hasher.Verify(creds.Password, s.placeholderHash())
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return nil, nil
	}

	login, err := s.issueLogin(user)
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, domain.UserLoggedIn{User: user.View(), Login: *login})
	return login, nil
}

// Update applies a profile change to the named user. An email that already
// belongs to another account is reported as not found.
func (s *UserService) Update(ctx context.Context, username string, update domain.UserUpdate) error {
	update.Email = domain.NormalizeEmail(update.Email)
	if err := s.validate.Struct(update); err != nil {
		return err
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return err
	}

	if email := update.Email; email != "" {
		owner, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != user.ID:
			return fmt.Errorf("%w: user was not found", domain.ErrNotFound)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("get user by email: %w", err)
		}
	}

	user.Apply(update)
	if err := s.users.Update(ctx, user); err != nil {
		// Another account claimed the email after the check above.
		if errors.Is(err, domain.ErrEmailInUse) {
			return fmt.Errorf("%w: user was not found", domain.ErrNotFound)
		}
		return fmt.Errorf("update user: %w", err)
	}

	s.events.Dispatch(ctx, domain.UserUpdated{User: user.View()})
	return nil
}

// UpdatePassword replaces the user's password after checking the current one.
func (s *UserService) UpdatePassword(ctx context.Context, username string, data domain.UserUpdatePassword) error {
	if err := s.validate.Struct(data); err != nil {
		return err
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(data.CurrentPassword, user.PasswordHash) {
		return domain.ErrAuthenticationFailed
	}

	hash, err := s.hasher.Hash(data.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// AdminRegisterOrUpdate makes sure the configured administrator exists, has
// admin rights and uses the configured password. It is safe to call on every
// start, including from several processes at once.
func (s *UserService) AdminRegisterOrUpdate(ctx context.Context, cfg domain.AdminConfig) error {
	cfg.Email = domain.NormalizeEmail(cfg.Email)
	if err := s.validate.Struct(cfg); err != nil {
		return err
	}

	existing, err := s.users.GetByUsername(ctx, cfg.Username)
	if err == nil {
		return s.reconcileAdmin(ctx, existing, cfg)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get admin: %w", err)
	}

	hash, err := s.hasher.Hash(cfg.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := &domain.User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	err = s.users.Create(ctx, admin)
	if errors.Is(err, domain.ErrUsernameInUse) {
		// Another process created it between our lookup and insert.
		existing, gerr := s.users.GetByUsername(ctx, cfg.Username)
		if gerr != nil {
			return fmt.Errorf("get admin: %w", gerr)
		}
		return s.reconcileAdmin(ctx, existing, cfg)
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.InfoContext(ctx, "admin account created", "username", admin.Username, "user_id", admin.ID)
	return nil
}

func (s *UserService) reconcileAdmin(ctx context.Context, user *domain.User, cfg domain.AdminConfig) error {
	changed := false

	if !s.hasher.Verify(cfg.Password, user.PasswordHash) {
		hash, err := s.hasher.Hash(cfg.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		changed = true
	}
	if !user.IsAdmin {
		user.IsAdmin = true
		changed = true
	}
	if !changed {
		return nil
	}

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	slog.InfoContext(ctx, "admin account reconciled", "username", user.Username, "user_id", user.ID)
	return nil
}

// FindByUsername returns the public view of the named user.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*domain.UserView, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}
	view := user.View()
	return &view, nil
}

func (s *UserService) DoesUserExist(ctx context.Context, username string) (bool, error) {
	return s.exists(s.users.GetByUsername(ctx, username))
}

func (s *UserService) IsEmailInUse(ctx context.Context, email string) (bool, error) {
	return s.exists(s.users.GetByEmail(ctx, email))
}

func (s *UserService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	found, err := s.exists(s.users.GetByUsername(ctx, username))
	return !found, err
}

func (s *UserService) exists(_ *domain.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("get user: %w", err)
}

func (s *UserService) getUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) issueLogin(user *domain.User) (*domain.UserLogin, error) {
	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.UserLogin{User: user.View(), Token: token}, nil
}

// placeholderHash is a hash of a random secret, verified against when the
// username does not exist.
func (s *UserService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			slog.Warn("placeholder hash unavailable", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
