package core

import "context"

// TopicEvent is the CloudEvents-shaped envelope delivered to subscribers.
type TopicEvent struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	Type            string   `json:"type"`
	SpecVersion     string   `json:"specversion"`
	DataContentType string   `json:"datacontenttype"`
	Data            []byte   `json:"data"`
	Subject         string   `json:"subject,omitempty"`
	Time            string   `json:"time,omitempty"`
	PubsubName      string   `json:"pubsubname,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	Metadata        Metadata `json:"metadata,omitempty"`
}

// PublishEventRequest publishes one payload to a topic.
type PublishEventRequest struct {
	PubsubName  string
	Topic       string
	Data        []byte
	ContentType string
	Metadata    Metadata
}

// TopicSubscription names the topic a handler wants events from.
type TopicSubscription struct {
	PubsubName string
	Topic      string
	Metadata   Metadata
}

// TopicEventHandler consumes one delivered event. Returning an error leaves
// the subscription active; the event is not redelivered.
type TopicEventHandler func(ctx context.Context, ev *TopicEvent) error

// PubSub is the publish/subscribe capability.
type PubSub interface {
	// PublishEvent publishes raw bytes and returns the assigned event ID.
	PublishEvent(ctx context.Context, pubsubName, topic string, data []byte) (string, error)
	PublishEventWithRequest(ctx context.Context, req *PublishEventRequest) (string, error)

	// PublishJSON serializes data as JSON before publishing.
	PublishJSON(ctx context.Context, pubsubName, topic string, data any) (string, error)

	// Subscribe delivers topic events to handler until ctx is cancelled or
	// Unsubscribe is called for the same topic.
	Subscribe(ctx context.Context, sub TopicSubscription, handler TopicEventHandler) error
	Unsubscribe(ctx context.Context, pubsubName, topic string) error
}
