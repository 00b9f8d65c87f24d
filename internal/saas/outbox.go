// Package saas implements the development-mode email and SMS providers.
// Nothing leaves the machine: accepted messages land in an outbox persisted
// to a state store, move to sent immediately and can be inspected by
// message ID.
package saas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

// ErrMessageNotFound is returned when no outbox entry exists for the ID.
var ErrMessageNotFound = errors.New("saas: message not found")

// Kinds of outbox messages.
const (
	KindEmail = "email"
	KindSMS   = "sms"
)

// Message is one outbox entry.
type Message struct {
	ID         string              `json:"id"`
	Kind       string              `json:"kind"`
	From       string              `json:"from"`
	To         []string            `json:"to"`
	Cc         []string            `json:"cc,omitempty"`
	Bcc        []string            `json:"bcc,omitempty"`
	Subject    string              `json:"subject,omitempty"`
	Body       string              `json:"body"`
	HTML       bool                `json:"html,omitempty"`
	TemplateID string              `json:"template_id,omitempty"`
	Status     saas.DeliveryStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	Metadata   map[string]string   `json:"metadata,omitempty"`
}

// Outbox persists accepted messages in a state store.
type Outbox struct {
	store state.Store
}

// NewOutbox wraps the state store the outbox persists to.
func NewOutbox(store state.Store) *Outbox {
	return &Outbox{store: store}
}

func outboxKey(id string) string { return "saas:outbox:" + id }

// Record stores the message under a fresh ID and returns it.
func (o *Outbox) Record(ctx context.Context, msg *Message) (*saas.SendResult, error) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	// The dev-mode provider delivers into the outbox itself, so accepted
	// messages are sent the moment they land.
	msg.Status = saas.StatusSent

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if _, err := o.store.Set(ctx, &state.SetRequest{Key: outboxKey(msg.ID), Value: data}); err != nil {
		return nil, fmt.Errorf("saas: persisting outbox entry: %w", err)
	}
	return &saas.SendResult{MessageID: msg.ID, Status: msg.Status}, nil
}

// Get returns the outbox entry for id.
func (o *Outbox) Get(ctx context.Context, id string) (*Message, error) {
	item, err := o.store.Get(ctx, outboxKey(id))
	if errors.Is(err, state.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(item.Value, &msg); err != nil {
		return nil, fmt.Errorf("saas: decoding outbox entry %s: %w", id, err)
	}
	return &msg, nil
}

// Status returns the delivery status of id.
func (o *Outbox) Status(ctx context.Context, id string) (saas.DeliveryStatus, error) {
	msg, err := o.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return msg.Status, nil
}
