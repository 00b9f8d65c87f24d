package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func TestPublishAndSubscribe(t *testing.T) {
	srv := newTestDaemon(t)
	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *core.TopicEvent, 1)
	err := c.PubSub().Subscribe(ctx, core.TopicSubscription{
		PubsubName: "default",
		Topic:      "orders",
	}, func(_ context.Context, ev *core.TopicEvent) error {
		received <- ev
		return nil
	})
	require.NoError(t, err)

	// The subscriber channel registers before Subscribe returns, so the
	// publish cannot race it.
	id, err := c.PubSub().PublishJSON(ctx, "default", "orders", map[string]int{"total": 42})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case ev := <-received:
		assert.Equal(t, id, ev.ID)
		assert.JSONEq(t, `{"total":42}`, string(ev.Data))
		assert.Equal(t, core.ContentTypeJSON, ev.DataContentType)
	case <-ctx.Done():
		t.Fatal("no event delivered")
	}

	require.NoError(t, c.PubSub().Unsubscribe(ctx, "default", "orders"))
}

func TestSubscribeTwiceConflicts(t *testing.T) {
	srv := newTestDaemon(t)
	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handler := func(context.Context, *core.TopicEvent) error { return nil }
	require.NoError(t, c.PubSub().Subscribe(ctx, core.TopicSubscription{PubsubName: "default", Topic: "t"}, handler))

	err := c.PubSub().Subscribe(ctx, core.TopicSubscription{PubsubName: "default", Topic: "t"}, handler)
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeConflict, cloudruntimes.Code(err))
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	srv := newTestDaemon(t)
	c := newTestClient(t, srv)

	err := c.PubSub().Unsubscribe(context.Background(), "default", "nothing")
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeNotFound, cloudruntimes.Code(err))
}

func TestConfigurationRoundTripAndSubscribe(t *testing.T) {
	srv := newTestDaemon(t)
	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := c.Configuration().SubscribeConfiguration(ctx, &core.ConfigurationRequest{
		StoreName: "default",
		AppID:     "checkout",
	})
	require.NoError(t, err)

	err = c.Configuration().SaveConfiguration(ctx, &core.SaveConfigurationRequest{
		StoreName: "default",
		AppID:     "checkout",
		Items: []core.ConfigurationItem{
			{Key: "feature.fast-path", Value: "on", Group: "flags"},
		},
	})
	require.NoError(t, err)

	items, err := c.Configuration().GetConfiguration(ctx, "default", "checkout", []string{"feature.fast-path"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "on", items[0].Value)

	select {
	case update := <-updates:
		require.Len(t, update.Items, 1)
		assert.Equal(t, "feature.fast-path", update.Items[0].Key)
	case <-ctx.Done():
		t.Fatal("no configuration update delivered")
	}

	require.NoError(t, c.Configuration().UnsubscribeConfiguration(ctx, "default", "checkout"))

	err = c.Configuration().DeleteConfiguration(ctx, &core.ConfigurationRequest{
		StoreName: "default",
		AppID:     "checkout",
		Keys:      []string{"feature.fast-path"},
	})
	require.NoError(t, err)

	items, err = c.Configuration().GetConfiguration(ctx, "default", "checkout", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
