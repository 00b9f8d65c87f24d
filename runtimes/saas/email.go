// Package saas defines the hosted-service capability set: email, SMS and
// cryptographic operations.
package saas

import "context"

// DeliveryStatus tracks an email or SMS message through the provider.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// SendEmailRequest sends one email message.
type SendEmailRequest struct {
	From     string            `json:"from"`
	To       []string          `json:"to"`
	Cc       []string          `json:"cc,omitempty"`
	Bcc      []string          `json:"bcc,omitempty"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	HTML     bool              `json:"html,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SendEmailTemplateRequest sends an email rendered from a named template.
type SendEmailTemplateRequest struct {
	From       string            `json:"from"`
	To         []string          `json:"to"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SendResult identifies an accepted message.
type SendResult struct {
	MessageID string         `json:"message_id"`
	Status    DeliveryStatus `json:"status"`
}

// Email is the transactional email capability.
type Email interface {
	SendEmail(ctx context.Context, req *SendEmailRequest) (*SendResult, error)
	SendEmailTemplate(ctx context.Context, req *SendEmailTemplateRequest) (*SendResult, error)
	GetEmailStatus(ctx context.Context, messageID string) (DeliveryStatus, error)
}
