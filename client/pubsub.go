package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type pubsubClient struct {
	t *transport

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

var _ core.PubSub = (*pubsubClient)(nil)

func newPubSubClient(t *transport) *pubsubClient {
	return &pubsubClient{t: t, subs: make(map[string]context.CancelFunc)}
}

func (c *pubsubClient) PublishEvent(ctx context.Context, pubsubName, topic string, data []byte) (string, error) {
	return c.PublishEventWithRequest(ctx, &core.PublishEventRequest{
		PubsubName: pubsubName,
		Topic:      topic,
		Data:       data,
	})
}

func (c *pubsubClient) PublishEventWithRequest(ctx context.Context, req *core.PublishEventRequest) (string, error) {
	if req.PubsubName == "" || req.Topic == "" {
		return "", cloudruntimes.Errorf(cloudruntimes.CodeParam, "pubsub name and topic required")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = core.ContentTypeJSON
	}
	resp, err := c.t.do(ctx, &request{
		method:      http.MethodPost,
		path:        "/v1.0/publish/" + url.PathEscape(req.PubsubName) + "/" + url.PathEscape(req.Topic),
		body:        req.Data,
		contentType: contentType,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "decoding publish response")
	}
	return out.ID, nil
}

func (c *pubsubClient) PublishJSON(ctx context.Context, pubsubName, topic string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", cloudruntimes.Errorf(cloudruntimes.CodeParam, "encoding event: %v", err)
	}
	return c.PublishEventWithRequest(ctx, &core.PublishEventRequest{
		PubsubName:  pubsubName,
		Topic:       topic,
		Data:        payload,
		ContentType: core.ContentTypeJSON,
	})
}

func subKey(pubsubName, topic string) string { return pubsubName + "/" + topic }

// Subscribe opens the event stream and pumps events to handler from a
// background goroutine. It returns once the stream is established; the
// stream closes when ctx is cancelled or Unsubscribe is called.
func (c *pubsubClient) Subscribe(ctx context.Context, sub core.TopicSubscription, handler core.TopicEventHandler) error {
	if sub.PubsubName == "" || sub.Topic == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "pubsub name and topic required")
	}
	if handler == nil {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "handler required")
	}

	key := subKey(sub.PubsubName, sub.Topic)
	c.mu.Lock()
	if _, exists := c.subs[key]; exists {
		c.mu.Unlock()
		return cloudruntimes.Errorf(cloudruntimes.CodeConflict, "already subscribed to %s", key)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.subs[key] = cancel
	c.mu.Unlock()

	body, err := c.t.stream(streamCtx, "/v1.0/subscribe/"+url.PathEscape(sub.PubsubName)+"/"+url.PathEscape(sub.Topic), nil)
	if err != nil {
		c.removeSub(key)
		cancel()
		return err
	}

	go func() {
		defer c.removeSub(key)
		defer cancel()
		defer func() { _ = body.Close() }()

		readEvents(body, func(payload []byte) {
			var ev core.TopicEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				c.t.logger.Warn().Err(err).Str("topic", sub.Topic).Msg("dropping undecodable event")
				return
			}
			if err := handler(streamCtx, &ev); err != nil {
				c.t.logger.Warn().Err(err).Str("topic", sub.Topic).Msg("event handler failed")
			}
		})
	}()
	return nil
}

func (c *pubsubClient) Unsubscribe(_ context.Context, pubsubName, topic string) error {
	key := subKey(pubsubName, topic)
	c.mu.Lock()
	cancel, ok := c.subs[key]
	c.mu.Unlock()
	if !ok {
		return cloudruntimes.Errorf(cloudruntimes.CodeNotFound, "no active subscription for %s", key)
	}
	cancel()
	return nil
}

func (c *pubsubClient) removeSub(key string) {
	c.mu.Lock()
	delete(c.subs, key)
	c.mu.Unlock()
}

// close cancels every active subscription.
func (c *pubsubClient) close() {
	c.mu.Lock()
	for _, cancel := range c.subs {
		cancel()
	}
	c.subs = make(map[string]context.CancelFunc)
	c.mu.Unlock()
}

// readEvents parses a server-sent event stream, invoking fn once per data
// frame. It returns when the stream ends.
func readEvents(r io.Reader, fn func(payload []byte)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		payload := make([]byte, len(line)-len("data: "))
		copy(payload, line[len("data: "):])
		fn(payload)
	}
}
