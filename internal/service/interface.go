// Package service holds the relay's application logic: message routing,
// conversation history and account management.
package service

import (
	"context"

	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/hub"
)

// RelayService routes client frames and serves conversation state.
type RelayService interface {
	// HandleFrame dispatches one raw client frame from an active session.
	HandleFrame(ctx context.Context, c *hub.Client, raw []byte)
	// History returns the latest limit messages between the caller and peer,
	// ordered oldest first.
	History(ctx context.Context, callerID, peerID string, limit int) ([]domain.Message, error)
	// Online returns the ids of every identity with at least one session.
	Online() []string
}

// AccountService manages registration and credential login.
type AccountService interface {
	Register(ctx context.Context, email, displayName, password string) (*domain.User, error)
	// Login verifies credentials and returns the user plus a signed token
	// and its expiry.
	Login(ctx context.Context, email, password string) (*domain.User, string, int64, error)
}
