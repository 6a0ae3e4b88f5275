package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msomdec/updog/internal/domain"
	"github.com/msomdec/updog/internal/repository/sqlite"
	"github.com/msomdec/updog/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingNotifier keeps every dispatched event in memory.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Dispatch(_ context.Context, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.EventName()
	}
	return out
}

type failingIssuer struct{}

func (failingIssuer) IssueToken(*domain.User) (string, error) {
	return "", errors.New("signing key unavailable")
}

type userFixture struct {
	db     *sqlite.DB
	svc    *service.UserService
	tokens *service.JWTIssuer
	events *recordingNotifier
}

func newUserFixture(t *testing.T, defaultSpaces ...string) *userFixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	spaces := service.NewSpaceService(db.Spaces(), db.Subscriptions())
	require.NoError(t, spaces.SeedDefaults(ctx, defaultSpaces))

	tokens := service.NewJWTIssuer(testJWTSecret, time.Hour)
	events := &recordingNotifier{}
	svc := service.NewUserService(userStores(db), service.NewBcryptHasher(4), tokens, events)
	return &userFixture{db: db, svc: svc, tokens: tokens, events: events}
}

func userStores(db *sqlite.DB) service.UserStores {
	return service.UserStores{
		Tx:            db,
		Users:         db.Users(),
		Spaces:        db.Spaces(),
		Subscriptions: db.Subscriptions(),
	}
}

func (f *userFixture) register(t *testing.T, username, email string) *domain.UserLogin {
	t.Helper()
	login, err := f.svc.Register(context.Background(), domain.UserRegistration{
		Username: username,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, login)
	return login
}

// hookedUsers wraps a UserRepository so tests can run code between a
// service's lookup and its write, or hide existing rows from lookups.
type hookedUsers struct {
	domain.UserRepository

	mu                 sync.Mutex
	afterGetByUsername func()
	afterGetByEmail    func()
	hideExisting       bool
}

func (h *hookedUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if h.hideExisting {
		return nil, domain.ErrNotFound
	}
	user, err := h.UserRepository.GetByUsername(ctx, username)
	h.fire(&h.afterGetByUsername)
	return user, err
}

func (h *hookedUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if h.hideExisting {
		return nil, domain.ErrNotFound
	}
	user, err := h.UserRepository.GetByEmail(ctx, email)
	h.fire(&h.afterGetByEmail)
	return user, err
}

// fire runs the hook at most once.
func (h *hookedUsers) fire(hook *func()) {
	h.mu.Lock()
	fn := *hook
	*hook = nil
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func countRows(t *testing.T, db *sqlite.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.SqlDB.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
