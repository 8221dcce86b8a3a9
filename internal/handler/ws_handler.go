package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ClarkHamofares/chat-app/internal/audit"
	"github.com/ClarkHamofares/chat-app/internal/auth"
	"github.com/ClarkHamofares/chat-app/internal/config"
	"github.com/ClarkHamofares/chat-app/internal/hub"
	"github.com/ClarkHamofares/chat-app/internal/metrics"
	"github.com/ClarkHamofares/chat-app/internal/service"
	"github.com/ClarkHamofares/chat-app/pkg/log"
	"github.com/ClarkHamofares/chat-app/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler owns the websocket endpoint. The token is verified before the
// upgrade; a connection that cannot present a valid identity never reaches
// the hub.
type WSHandler struct {
	hub        *hub.Hub
	relay      service.RelayService
	verifier   auth.Verifier
	auditor    *audit.Auditor
	cfg        config.WebSocketConfig
	tokenParam string
}

func NewWSHandler(h *hub.Hub, relay service.RelayService, verifier auth.Verifier, auditor *audit.Auditor, cfg config.WebSocketConfig, tokenParam string) *WSHandler {
	return &WSHandler{
		hub:      h,
		relay:    relay,
		verifier: verifier,
		auditor:  auditor,
		cfg:      cfg,
		tokenParam: tokenParam,
	}
}

// HandleWebSocket verifies the handshake token, upgrades the connection and
// registers the session.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query(h.tokenParam)
	if token == "" {
		metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
		h.auditor.HandshakeRejected(c.ClientIP(), "missing token")
		response.Unauthorized(c, "missing token")
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, auth.ErrExpiredToken) {
			reason = "expired_token"
		}
		metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
		h.auditor.HandshakeRejected(c.ClientIP(), reason)
		response.Unauthorized(c, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldClientIP, c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), *identity, h.hub, conn, h.cfg)

	h.hub.Register(client)
	h.auditor.SessionOpened(client.ID, identity.ID, c.ClientIP())

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleFrame)
		// ReadPump owns deregistration; by the time it returns the session
		// has left the hub.
		h.auditor.SessionClosed(client.ID, identity.ID)
	}()
}

func (h *WSHandler) handleFrame(client *hub.Client, frame []byte) {
	h.relay.HandleFrame(context.Background(), client, frame)
}
