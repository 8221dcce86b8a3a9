// Package audit records security-relevant relay activity on a dedicated
// structured log stream, separated from operational logs by the log_type
// field so it can be shipped and retained independently.
package audit

import (
	"github.com/rs/zerolog"

	"github.com/ClarkHamofares/chat-app/pkg/log"
)

// Auditor writes the audit trail.
type Auditor struct {
	logger zerolog.Logger
}

// New creates an auditor on top of the service logger.
func New() *Auditor {
	return NewWithLogger(log.L())
}

// NewWithLogger creates an auditor writing through the given logger.
func NewWithLogger(logger zerolog.Logger) *Auditor {
	return &Auditor{
		logger: logger.With().Str(log.FieldLogType, log.LogTypeAudit).Logger(),
	}
}

// Login records an authentication attempt against the HTTP API.
func (a *Auditor) Login(email string, success bool) {
	a.logger.Info().
		Str("email", email).
		Bool("success", success).
		Msg("login attempt")
}

// Register records an account creation.
func (a *Auditor) Register(userID, email string) {
	a.logger.Info().
		Str(log.FieldUserID, userID).
		Str("email", email).
		Msg("account registered")
}

// HandshakeRejected records a websocket handshake denied before upgrade.
func (a *Auditor) HandshakeRejected(remoteAddr, reason string) {
	a.logger.Warn().
		Str(log.FieldClientIP, remoteAddr).
		Str("reason", reason).
		Msg("handshake rejected")
}

// SessionOpened records a session becoming active.
func (a *Auditor) SessionOpened(connID, userID, remoteAddr string) {
	a.logger.Info().
		Str(log.FieldConnID, connID).
		Str(log.FieldUserID, userID).
		Str(log.FieldClientIP, remoteAddr).
		Msg("session opened")
}

// SessionClosed records a session ending.
func (a *Auditor) SessionClosed(connID, userID string) {
	a.logger.Info().
		Str(log.FieldConnID, connID).
		Str(log.FieldUserID, userID).
		Msg("session closed")
}

// MessageRouted records a persisted and fanned-out message.
func (a *Auditor) MessageRouted(messageID, fromID, toID string) {
	a.logger.Info().
		Str(log.FieldMessageID, messageID).
		Str(log.FieldUserID, fromID).
		Str(log.FieldPeerID, toID).
		Msg("message routed")
}
