package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarkHamofares/chat-app/internal/config"
	"github.com/ClarkHamofares/chat-app/internal/domain"
)

func testClient(t *testing.T, h *Hub, connID, userID string) *Client {
	t.Helper()
	return NewClient(connID, domain.Identity{ID: userID, DisplayName: userID}, h, nil, config.WebSocketConfig{
		SendBuffer: 16,
	})
}

func drainPresence(t *testing.T, c *Client) []string {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev domain.PresenceEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		require.Equal(t, domain.EventPresence, ev.Type)
		return ev.Identities
	default:
		t.Fatal("expected a presence event")
		return nil
	}
}

func TestRegisterBroadcastsSnapshotToAllSessions(t *testing.T) {
	h := New(nil)

	alice := testClient(t, h, "conn-1", "alice")
	h.Register(alice)
	assert.Equal(t, []string{"alice"}, drainPresence(t, alice))

	bob := testClient(t, h, "conn-2", "bob")
	h.Register(bob)

	// Both the existing session and the newcomer see a snapshot that
	// includes the newcomer.
	assert.Equal(t, []string{"alice", "bob"}, drainPresence(t, alice))
	assert.Equal(t, []string{"alice", "bob"}, drainPresence(t, bob))
}

func TestMultipleSessionsPerIdentity(t *testing.T) {
	h := New(nil)

	phone := testClient(t, h, "conn-1", "alice")
	laptop := testClient(t, h, "conn-2", "alice")
	h.Register(phone)
	h.Register(laptop)

	assert.True(t, h.IsOnline("alice"))
	assert.Len(t, h.SessionsFor("alice"), 2)
	assert.Equal(t, []string{"alice"}, h.OnlineIdentities())

	// Closing one session keeps the identity online.
	h.Unregister(phone)
	assert.True(t, h.IsOnline("alice"))
	assert.Len(t, h.SessionsFor("alice"), 1)

	h.Unregister(laptop)
	assert.False(t, h.IsOnline("alice"))
	assert.Empty(t, h.OnlineIdentities())
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := New(nil)

	alice := testClient(t, h, "conn-1", "alice")
	bob := testClient(t, h, "conn-2", "bob")
	h.Register(alice)
	h.Register(bob)
	drainPresence(t, bob)

	h.Unregister(alice)
	assert.Equal(t, []string{"bob"}, drainPresence(t, bob))

	// A second deregistration changes nothing and broadcasts nothing.
	h.Unregister(alice)
	select {
	case data := <-bob.Send:
		t.Fatalf("unexpected broadcast after duplicate unregister: %s", data)
	default:
	}
	assert.Equal(t, []string{"bob"}, h.OnlineIdentities())
}

func TestDepartedSessionReceivesNoBroadcast(t *testing.T) {
	h := New(nil)

	alice := testClient(t, h, "conn-1", "alice")
	bob := testClient(t, h, "conn-2", "bob")
	h.Register(alice)
	h.Register(bob)
	drainPresence(t, alice)
	drainPresence(t, alice)
	drainPresence(t, bob)

	h.Unregister(alice)

	// The departing session is closed; pushes to it fail quietly.
	assert.ErrorIs(t, alice.push([]byte("{}")), ErrSessionClosed)

	// Bob still got the shrunken snapshot.
	assert.Equal(t, []string{"bob"}, drainPresence(t, bob))
}

func TestPushOnFullBufferDoesNotBlock(t *testing.T) {
	h := New(nil)
	c := NewClient("conn-1", domain.Identity{ID: "alice"}, h, nil, config.WebSocketConfig{SendBuffer: 1})

	require.NoError(t, c.push([]byte("one")))
	assert.ErrorIs(t, c.push([]byte("two")), ErrSendBufferFull)
}

func TestSendEventMarshalsJSON(t *testing.T) {
	h := New(nil)
	c := testClient(t, h, "conn-1", "alice")

	require.NoError(t, c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "nope")))

	var ev domain.ErrorEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &ev))
	assert.Equal(t, domain.EventError, ev.Type)
	assert.Equal(t, domain.ErrCodeBadRequest, ev.Code)
}
