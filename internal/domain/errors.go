package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrCollision            = errors.New("collision")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrValidationFailed     = errors.New("validation failed")
	ErrRateLimited          = errors.New("too many attempts")
)

// Collision and validation details. Each wraps its kind so callers can
// branch with errors.Is on either the detail or the kind.
var (
	ErrUsernameInUse = fmt.Errorf("%w: username is unavailable", ErrCollision)
	ErrEmailInUse    = fmt.Errorf("%w: email is already in use", ErrCollision)
	ErrInvalidVote   = fmt.Errorf("%w: invalid vote", ErrValidationFailed)
)
