package auth

import (
	"context"
	"errors"

	"github.com/ClarkHamofares/chat-app/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Verifier validates a bearer credential and yields a stable identity.
// Invoked once per connection attempt and independently per administrative
// call; implementations must not share per-call mutable state.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}
