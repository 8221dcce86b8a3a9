package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ClarkHamofares/chat-app/internal/auth"
	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/metrics"
	"github.com/ClarkHamofares/chat-app/internal/repository"
	"github.com/ClarkHamofares/chat-app/internal/service"
	"github.com/ClarkHamofares/chat-app/pkg/log"
	"github.com/ClarkHamofares/chat-app/pkg/response"
	"github.com/ClarkHamofares/chat-app/pkg/storage"
)

const identityKey = "identity"

// maxMediaSize caps an uploaded media object at 32 MiB.
const maxMediaSize = 32 << 20

// HTTPHandler serves the REST surface next to the websocket endpoint.
type HTTPHandler struct {
	accounts service.AccountService
	relay    service.RelayService
	verifier auth.Verifier
	store    storage.Storage
}

func NewHTTPHandler(accounts service.AccountService, relay service.RelayService, verifier auth.Verifier, store storage.Storage) *HTTPHandler {
	return &HTTPHandler{
		accounts: accounts,
		relay:    relay,
		verifier: verifier,
		store:    store,
	}
}

// RegisterRoutes mounts the API on the engine.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, ws *WSHandler) {
	r.GET("/health", h.Health)
	r.GET("/ws", ws.HandleWebSocket)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		authed := v1.Group("", h.RequireAuth())
		{
			authed.GET("/messages", h.Messages)
			authed.GET("/presence", h.Presence)
			authed.POST("/media", h.UploadMedia)
		}
	}
}

// RequireAuth verifies a Bearer token and stores the identity on the context.
func (h *HTTPHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		identity, err := h.verifier.Verify(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, auth.ErrExpiredToken) {
				reason = "expired_token"
			}
			metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func callerIdentity(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	return v.(*domain.Identity)
}

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Register creates an account.
func (h *HTTPHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email, display_name and password are required")
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			response.BadRequest(c, "invalid registration fields")
		case errors.Is(err, repository.ErrDuplicateEmail):
			response.Conflict(c, "email already registered")
		default:
			l := log.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("registration failed")
			response.InternalError(c, "registration failed")
		}
		return
	}

	response.Created(c, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns a handshake token.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}

	user, token, expiresAt, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "login failed")
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

// Messages returns conversation history between the caller and a peer.
func (h *HTTPHandler) Messages(c *gin.Context) {
	identity := callerIdentity(c)

	peerID := c.Query("with")
	if peerID == "" {
		response.BadRequest(c, "query parameter 'with' is required")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := h.relay.History(c.Request.Context(), identity.ID, peerID, limit)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).
			Str(log.FieldUserID, identity.ID).
			Str(log.FieldPeerID, peerID).
			Msg("history query failed")
		response.InternalError(c, "failed to load messages")
		return
	}

	response.Success(c, gin.H{"messages": messages})
}

// Presence returns the ids of every online identity.
func (h *HTTPHandler) Presence(c *gin.Context) {
	response.Success(c, gin.H{"online": h.relay.Online()})
}

// UploadMedia stores an uploaded object and returns its URL for use in a
// later send intent.
func (h *HTTPHandler) UploadMedia(c *gin.Context) {
	identity := callerIdentity(c)

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "multipart field 'file' is required")
		return
	}
	if file.Size > maxMediaSize {
		response.BadRequest(c, "file exceeds maximum size")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("media/%s/%s%s", identity.ID, uuid.New().String(), filepath.Ext(file.Filename))
	if err := h.store.Write(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldUserID, identity.ID).Msg("media upload failed")
		response.InternalError(c, "failed to store media")
		return
	}

	url, err := h.store.GetURL(c.Request.Context(), key, 24*time.Hour)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldUserID, identity.ID).Msg("media url failed")
		response.InternalError(c, "failed to resolve media url")
		return
	}

	response.Created(c, gin.H{
		"key":        key,
		"media_url":  url,
		"media_type": contentType,
	})
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
