package saas

import "context"

// SendSMSRequest sends one text message.
type SendSMSRequest struct {
	From     string            `json:"from"`
	To       []string          `json:"to"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SendSMSTemplateRequest sends a text rendered from a named template.
type SendSMSTemplateRequest struct {
	From       string            `json:"from"`
	To         []string          `json:"to"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SMS is the text message capability.
type SMS interface {
	SendSMS(ctx context.Context, req *SendSMSRequest) (*SendResult, error)
	SendSMSTemplate(ctx context.Context, req *SendSMSTemplateRequest) (*SendResult, error)
	GetSMSStatus(ctx context.Context, messageID string) (DeliveryStatus, error)
}
