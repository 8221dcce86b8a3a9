package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ClarkHamofares/chat-app/internal/audit"
	"github.com/ClarkHamofares/chat-app/internal/cache"
	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/events"
	"github.com/ClarkHamofares/chat-app/internal/hub"
	"github.com/ClarkHamofares/chat-app/internal/metrics"
	"github.com/ClarkHamofares/chat-app/internal/repository"
	"github.com/ClarkHamofares/chat-app/pkg/log"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type relayService struct {
	h         *hub.Hub
	messages  repository.MessageRepository
	convCache cache.ConversationCache
	cacheTTL  time.Duration
	publisher events.Publisher
	auditor   *audit.Auditor
	group     singleflight.Group
}

// NewRelayService wires the router over the hub and the message store.
// convCache may be nil when history caching is disabled.
func NewRelayService(
	h *hub.Hub,
	messages repository.MessageRepository,
	convCache cache.ConversationCache,
	cacheTTL time.Duration,
	publisher events.Publisher,
	auditor *audit.Auditor,
) RelayService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &relayService{
		h:         h,
		messages:  messages,
		convCache: convCache,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		auditor:   auditor,
	}
}

// HandleFrame dispatches one raw frame. Malformed or invalid frames produce an
// error event on the same session; the session itself stays active.
func (s *relayService) HandleFrame(ctx context.Context, c *hub.Client, raw []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		s.reject(c, domain.ErrCodeBadRequest, "malformed frame")
		return
	}

	switch base.Type {
	case domain.EventPing:
		if err := c.SendEvent(domain.BaseEvent{Type: domain.EventPong}); err != nil {
			metrics.DeliveriesDropped.Inc()
		}
	case domain.EventSend:
		var ev domain.SendEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.reject(c, domain.ErrCodeBadRequest, "malformed send event")
			return
		}
		s.route(ctx, c, &ev.SendIntent)
	default:
		s.reject(c, domain.ErrCodeBadRequest, fmt.Sprintf("unknown event type %q", base.Type))
	}
}

// route validates, persists, then fans out one send intent. Persistence
// strictly precedes any delivery attempt, so a message a recipient sees is
// always already durable.
func (s *relayService) route(ctx context.Context, c *hub.Client, intent *domain.SendIntent) {
	timer := time.Now()

	if intent.To == "" {
		s.reject(c, domain.ErrCodeNoRecipient, "recipient is required")
		return
	}
	if intent.Text == "" && intent.MediaURL == "" {
		s.reject(c, domain.ErrCodeEmptyIntent, "message needs text or media")
		return
	}

	msg := &domain.Message{
		From:      c.Identity.ID,
		To:        intent.To,
		Text:      intent.Text,
		MediaURL:  intent.MediaURL,
		MediaType: intent.MediaType,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		metrics.PersistFailuresTotal.Inc()
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldUserID, msg.From).
			Str(log.FieldPeerID, msg.To).
			Msg("failed to persist message")
		s.reject(c, domain.ErrCodePersistFailed, "message could not be stored")
		return
	}

	s.invalidateConversation(ctx, msg.From, msg.To)

	if err := s.publisher.PublishMessage(ctx, msg); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to publish message event")
	}

	delivered := domain.NewDeliveredEvent(&domain.DeliveredMessage{
		Message:  *msg,
		FromName: c.Identity.DisplayName,
	})

	// Echo to the originating session first so the sender always observes
	// its own accepted message, online recipient or not.
	if err := c.SendEvent(delivered); err != nil {
		metrics.DeliveriesDropped.Inc()
	}

	// Fan out to every recipient session. The originating session is skipped
	// so a self-addressed message arrives exactly once per connection. A
	// failed push is a per-recipient miss and never fails the route.
	for _, rc := range s.h.SessionsFor(msg.To) {
		if rc == c {
			continue
		}
		if err := rc.SendEvent(delivered); err != nil {
			metrics.DeliveriesDropped.Inc()
			l := log.Ctx(ctx)
			l.Debug().Err(err).
				Str(log.FieldConnID, rc.ID).
				Str(log.FieldMessageID, msg.ID).
				Msg("delivery dropped")
		}
	}

	metrics.MessagesRoutedTotal.Inc()
	metrics.MessageRouteDuration.Observe(time.Since(timer).Seconds())
	s.auditor.MessageRouted(msg.ID, msg.From, msg.To)
}

func (s *relayService) reject(c *hub.Client, code, message string) {
	metrics.MessagesRejectedTotal.WithLabelValues(code).Inc()
	if err := c.SendEvent(domain.NewErrorEvent(code, message)); err != nil {
		metrics.DeliveriesDropped.Inc()
	}
}

// History serves a conversation page, read-through cached when a cache is
// configured. Concurrent misses on the same page collapse to one store read.
func (s *relayService) History(ctx context.Context, callerID, peerID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if s.convCache == nil {
		return s.messages.Conversation(ctx, callerID, peerID, limit)
	}

	key := s.convCache.BuildKey(callerID, peerID, limit)
	if cached, err := s.convCache.Get(ctx, key); err == nil {
		metrics.HistoryCacheHits.Inc()
		return cached.Messages, nil
	}
	metrics.HistoryCacheMisses.Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		msgs, err := s.messages.Conversation(ctx, callerID, peerID, limit)
		if err != nil {
			return nil, err
		}
		if err := s.convCache.Set(ctx, key, &cache.ConversationCacheResult{Messages: msgs}, s.cacheTTL); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("failed to cache conversation page")
		}
		return msgs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Message), nil
}

// Online returns the current presence snapshot.
func (s *relayService) Online() []string {
	return s.h.OnlineIdentities()
}

func (s *relayService) invalidateConversation(ctx context.Context, a, b string) {
	if s.convCache == nil {
		return
	}
	if err := s.convCache.Delete(ctx, s.convCache.PairKey(a, b)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to invalidate conversation cache")
	}
}
