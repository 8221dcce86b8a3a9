package log

// Shared structured-log field names.
const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldPeerID   = "peer_id"
	FieldUsername = "username"

	// Realtime
	FieldConnID    = "conn_id"
	FieldMessageID = "message_id"
	FieldEventType = "event_type"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
