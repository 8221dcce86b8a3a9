package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ClarkHamofares/chat-app/internal/config"
	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/pkg/log"
)

var (
	// ErrSessionClosed is returned when pushing to a session that has left the hub.
	ErrSessionClosed = errors.New("session closed")
	// ErrSendBufferFull is returned when a session's outbound buffer is saturated.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client is one live, verified connection bound to an identity.
// The identity is fixed at handshake time and never changes.
type Client struct {
	ID          string
	Identity    domain.Identity
	ConnectedAt time.Time

	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	cfg config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an already-verified connection.
func NewClient(id string, identity domain.Identity, h *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 256
	}
	return &Client{
		ID:          id,
		Identity:    identity,
		ConnectedAt: time.Now(),
		Hub:         h,
		Conn:        conn,
		Send:        make(chan []byte, cfg.SendBuffer),
		cfg:         cfg,
	}
}

// SendEvent marshals an event and queues it for delivery. A closed session or
// a full buffer fails this one push only; callers treat that as a best-effort
// delivery miss, not a session fault.
func (c *Client) SendEvent(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.push(data)
}

func (c *Client) push(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// closeSend marks the session closed and releases the write pump.
// Safe to call more than once; only the hub calls it, under deregistration.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump reads client frames and dispatches them to handler. It owns
// deregistration: when the transport closes for any reason the client is
// removed from the hub exactly once.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldConnID, c.ID).Msg("websocket read error")
			}
			return
		}

		handler(c, message)
	}
}

// WritePump drains the send channel onto the connection and keeps the
// protocol-level ping/pong alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
