package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/events"
	"github.com/ClarkHamofares/chat-app/internal/metrics"
	"github.com/ClarkHamofares/chat-app/pkg/log"
)

// Hub is the authoritative presence table. An identity maps to the set of its
// live sessions, so the same account can connect from several devices at once
// and a new connection never displaces an older one.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[string]map[*Client]struct{}
	publisher events.Publisher
}

func New(publisher events.Publisher) *Hub {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Hub{
		sessions:  make(map[string]map[*Client]struct{}),
		publisher: publisher,
	}
}

// Register activates a session and broadcasts the resulting online snapshot.
// The snapshot and the recipient list are captured under the same lock as the
// mutation, so every session that was active at registration time sees a
// snapshot that includes the newcomer.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[c.Identity.ID]
	if !ok {
		set = make(map[*Client]struct{})
		h.sessions[c.Identity.ID] = set
	}
	if _, dup := set[c]; dup {
		h.mu.Unlock()
		return
	}
	cameOnline := len(set) == 0
	set[c] = struct{}{}
	ids := h.onlineIdentitiesLocked()
	recipients := h.allSessionsLocked()
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	metrics.ConnectionsTotal.Inc()

	if cameOnline {
		if err := h.publisher.PublishPresence(context.Background(), c.Identity.ID, true); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldUserID, c.Identity.ID).Msg("failed to publish presence event")
		}
	}

	l := log.L()
	l.Info().
		Str(log.FieldConnID, c.ID).
		Str(log.FieldUserID, c.Identity.ID).
		Int("online", len(ids)).
		Msg("session registered")

	h.broadcastPresence(ids, recipients)
}

// Unregister removes a session and broadcasts the shrunken snapshot. A second
// call for the same session is a no-op: no state change, no broadcast.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[c.Identity.ID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	wentOffline := len(set) == 0
	if wentOffline {
		delete(h.sessions, c.Identity.ID)
	}
	ids := h.onlineIdentitiesLocked()
	recipients := h.allSessionsLocked()
	h.mu.Unlock()

	c.closeSend()
	metrics.ConnectionsActive.Dec()

	if wentOffline {
		if err := h.publisher.PublishPresence(context.Background(), c.Identity.ID, false); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldUserID, c.Identity.ID).Msg("failed to publish presence event")
		}
	}

	l := log.L()
	l.Info().
		Str(log.FieldConnID, c.ID).
		Str(log.FieldUserID, c.Identity.ID).
		Int("online", len(ids)).
		Msg("session deregistered")

	h.broadcastPresence(ids, recipients)
}

// IsOnline reports whether the identity has at least one active session.
func (h *Hub) IsOnline(identityID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[identityID]) > 0
}

// OnlineIdentities returns the sorted ids of every online identity.
func (h *Hub) OnlineIdentities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineIdentitiesLocked()
}

// SessionsFor returns every active session bound to the identity. The slice
// is a snapshot; sessions may close after it is taken.
func (h *Hub) SessionsFor(identityID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.sessions[identityID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) onlineIdentitiesLocked() []string {
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Hub) allSessionsLocked() []*Client {
	var out []*Client
	for _, set := range h.sessions {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) broadcastPresence(ids []string, recipients []*Client) {
	data, err := json.Marshal(domain.NewPresenceEvent(ids))
	if err != nil {
		l := log.L()
		l.Error().Err(err).Msg("marshal presence event")
		return
	}
	for _, c := range recipients {
		if err := c.push(data); err != nil {
			metrics.DeliveriesDropped.Inc()
		}
	}
	metrics.PresenceBroadcasts.Inc()
}
