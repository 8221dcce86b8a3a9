package cache

import (
	"context"
	"time"

	"github.com/ClarkHamofares/chat-app/internal/domain"
)

// ConversationCacheResult is the cached form of a conversation page.
type ConversationCacheResult struct {
	Messages []domain.Message `json:"messages"`
}

// ConversationCache is a short-lived read-through cache over conversation
// history. The durable store stays authoritative; a miss or cache error is
// never fatal to a read.
type ConversationCache interface {
	Get(ctx context.Context, key string) (*ConversationCacheResult, error)
	Set(ctx context.Context, key string, result *ConversationCacheResult, ttl time.Duration) error
	// Delete drops every cached page for the conversation pair, called after
	// a new message is appended so readers do not serve stale history past
	// the TTL.
	Delete(ctx context.Context, pairKey string) error
	BuildKey(a, b string, limit int) string
	PairKey(a, b string) string
	Close() error
}
