package domain

// PasswordHasher hashes and verifies plaintext secrets.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer issues opaque authentication tokens for a user.
type TokenIssuer interface {
	IssueToken(user *User) (string, error)
}
