package log

// Canonical field name constants for structured logging.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Capability fields
	FieldStore     = "store"
	FieldKey       = "key"
	FieldTopic     = "topic"
	FieldPubSub    = "pubsub"
	FieldAppID     = "app_id"
	FieldResource  = "resource"
	FieldOwner     = "owner"
	FieldBinding   = "binding"
	FieldOperation = "operation"
	FieldMessageID = "message_id"
)
