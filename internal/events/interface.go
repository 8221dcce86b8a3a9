// Package events publishes relay activity to an external broker for
// downstream consumers. Publishing is best effort and never blocks routing.
package events

import (
	"context"

	"github.com/ClarkHamofares/chat-app/internal/domain"
)

// Publisher emits relay events to an external stream.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *domain.Message) error
	PublishPresence(ctx context.Context, identityID string, online bool) error
	Close() error
}

// NopPublisher is used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishMessage(ctx context.Context, msg *domain.Message) error { return nil }
func (NopPublisher) PublishPresence(ctx context.Context, identityID string, online bool) error {
	return nil
}
func (NopPublisher) Close() error { return nil }
