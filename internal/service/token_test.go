package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/updog/internal/domain"
	"github.com/msomdec/updog/internal/service"
)

func TestJWTIssuer_IssueAndValidate(t *testing.T) {
	issuer := service.NewJWTIssuer(testJWTSecret, time.Hour)
	user := &domain.User{ID: 42, Username: "alice", IsAdmin: true}

	token, err := issuer.IssueToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	claims := &service.Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Admin)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTIssuer_UniqueTokens(t *testing.T) {
	issuer := service.NewJWTIssuer(testJWTSecret, time.Hour)
	user := &domain.User{ID: 1, Username: "alice"}

	a, err := issuer.IssueToken(user)
	require.NoError(t, err)
	b, err := issuer.IssueToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTIssuer_InvalidToken(t *testing.T) {
	issuer := service.NewJWTIssuer(testJWTSecret, time.Hour)

	_, err := issuer.ValidateToken("not-a-jwt")
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestJWTIssuer_TamperedToken(t *testing.T) {
	issuer := service.NewJWTIssuer(testJWTSecret, time.Hour)
	alice, err := issuer.IssueToken(&domain.User{ID: 1, Username: "alice"})
	require.NoError(t, err)
	mallory, err := issuer.IssueToken(&domain.User{ID: 2, Username: "mallory"})
	require.NoError(t, err)

	// Mallory's claims under Alice's signature.
	a := strings.Split(alice, ".")
	m := strings.Split(mallory, ".")
	tampered := a[0] + "." + m[1] + "." + a[2]

	_, err = issuer.ValidateToken(tampered)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	token, err := service.NewJWTIssuer(testJWTSecret, time.Hour).IssueToken(&domain.User{ID: 1})
	require.NoError(t, err)

	other := service.NewJWTIssuer("a-completely-different-secret-value!", time.Hour)
	_, err = other.ValidateToken(token)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestJWTIssuer_Expired(t *testing.T) {
	issuer := service.NewJWTIssuer(testJWTSecret, -time.Minute)
	token, err := issuer.IssueToken(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = issuer.ValidateToken(token)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestBcryptHasher(t *testing.T) {
	hasher := service.NewBcryptHasher(4)

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, hasher.Verify("password123", hash))
	assert.False(t, hasher.Verify("password124", hash))
	assert.False(t, hasher.Verify("password123", "not-a-bcrypt-hash"))
}
