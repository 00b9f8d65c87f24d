// Package pubsub implements the in-process topic broker behind the
// publish/subscribe API.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

const defaultBufferSize = 64

// ErrBrokerClosed is returned by Publish after the broker has shut down.
var ErrBrokerClosed = errors.New("pubsub: broker closed")

// Subscription is one consumer of a topic. Events arrive on C until Close
// is called or the broker shuts down; C is closed in both cases.
type Subscription struct {
	C chan *core.TopicEvent

	broker *Broker
	topic  string
	once   sync.Once
}

// Close detaches the subscription from its topic and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s.topic, s)
	})
}

// Broker fans events out to topic subscribers. Delivery is at-most-once:
// a subscriber whose buffer is full misses the event (counted, logged).
type Broker struct {
	name       string
	bufferSize int

	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// NewBroker creates a named broker. bufferSize <= 0 uses the default.
func NewBroker(name string, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Broker{
		name:       name,
		bufferSize: bufferSize,
		topics:     make(map[string]map[*Subscription]struct{}),
	}
}

// Name returns the broker's component name.
func (b *Broker) Name() string { return b.name }

// Publish assigns an event ID and timestamp if absent and fans the event
// out to all current subscribers of the topic.
func (b *Broker) Publish(ctx context.Context, topic string, ev *core.TopicEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.SpecVersion == "" {
		ev.SpecVersion = "1.0"
	}
	if ev.Time == "" {
		ev.Time = time.Now().UTC().Format(time.RFC3339)
	}
	ev.PubsubName = b.name
	ev.Topic = topic

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrBrokerClosed
	}

	metrics.RecordPublish(b.name, topic)
	for sub := range b.topics[topic] {
		select {
		case sub.C <- ev:
		default:
			metrics.RecordDrop(b.name, topic)
			log.FromContext(ctx).Warn().
				Str("pubsub", b.name).
				Str("topic", topic).
				Str("message_id", ev.ID).
				Msg("subscriber buffer full, event dropped")
		}
	}
	return ev.ID, nil
}

// Subscribe attaches a new subscriber to topic.
func (b *Broker) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		C:      make(chan *core.TopicEvent, b.bufferSize),
		broker: b,
		topic:  topic,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*Subscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	metrics.SetSubscribers(b.name, topic, len(b.topics[topic]))
	return sub
}

func (b *Broker) remove(topic string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[topic]; ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.C)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
			metrics.SetSubscribers(b.name, topic, len(subs))
		}
	}
}

// SubscriberCount reports the current subscriber count of topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Close detaches every subscriber and rejects further publishes.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			sub.once.Do(func() {}) // mark closed so a later Close is a no-op
			close(sub.C)
		}
		delete(b.topics, topic)
	}
}
