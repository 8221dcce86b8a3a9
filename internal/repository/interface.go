// Package repository defines the durable stores behind the relay.
package repository

import (
	"context"
	"errors"

	"github.com/ClarkHamofares/chat-app/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository stores registered accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// MessageRepository stores the append-only message log. Append must complete
// before any delivery of the message is attempted.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	// Conversation returns the latest limit messages exchanged between the
	// two identities, ordered oldest first.
	Conversation(ctx context.Context, a, b string, limit int) ([]domain.Message, error)
}
