package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type configurationClient struct {
	t *transport

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

var _ core.Configuration = (*configurationClient)(nil)

func newConfigurationClient(t *transport) *configurationClient {
	return &configurationClient{t: t, subs: make(map[string]context.CancelFunc)}
}

func configPath(store string) string {
	return "/v1.0/configuration/" + url.PathEscape(store)
}

func configQuery(req *core.ConfigurationRequest) url.Values {
	q := url.Values{}
	q.Set("appid", req.AppID)
	for _, key := range req.Keys {
		q.Add("key", key)
	}
	if req.Group != "" {
		q.Set("group", req.Group)
	}
	if req.Label != "" {
		q.Set("label", req.Label)
	}
	return q
}

func (c *configurationClient) GetConfiguration(ctx context.Context, storeName, appID string, keys []string) ([]core.ConfigurationItem, error) {
	return c.GetConfigurationWithRequest(ctx, &core.ConfigurationRequest{
		StoreName: storeName,
		AppID:     appID,
		Keys:      keys,
	})
}

func (c *configurationClient) GetConfigurationWithRequest(ctx context.Context, req *core.ConfigurationRequest) ([]core.ConfigurationItem, error) {
	if req.StoreName == "" || req.AppID == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and app id required")
	}

	var items []core.ConfigurationItem
	err := c.t.doJSON(ctx, http.MethodGet, configPath(req.StoreName), configQuery(req), nil, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

type saveConfigurationBody struct {
	AppID    string                   `json:"app_id"`
	Items    []core.ConfigurationItem `json:"items"`
	Metadata core.Metadata            `json:"metadata,omitempty"`
}

func (c *configurationClient) SaveConfiguration(ctx context.Context, req *core.SaveConfigurationRequest) error {
	if req.StoreName == "" || req.AppID == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and app id required")
	}
	if len(req.Items) == 0 {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "at least one item required")
	}
	body := saveConfigurationBody{AppID: req.AppID, Items: req.Items, Metadata: req.Metadata}
	return c.t.doJSON(ctx, http.MethodPost, configPath(req.StoreName), nil, body, nil)
}

func (c *configurationClient) DeleteConfiguration(ctx context.Context, req *core.ConfigurationRequest) error {
	if req.StoreName == "" || req.AppID == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and app id required")
	}
	_, err := c.t.do(ctx, &request{
		method: http.MethodDelete,
		path:   configPath(req.StoreName),
		query:  configQuery(req),
	})
	return err
}

// SubscribeConfiguration opens the store's change stream and forwards
// matching updates onto the returned channel until ctx is cancelled or
// UnsubscribeConfiguration is called.
func (c *configurationClient) SubscribeConfiguration(ctx context.Context, req *core.ConfigurationRequest) (<-chan core.ConfigurationUpdate, error) {
	if req.StoreName == "" || req.AppID == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and app id required")
	}

	key := req.StoreName + "/" + req.AppID
	c.mu.Lock()
	if _, exists := c.subs[key]; exists {
		c.mu.Unlock()
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeConflict, "already subscribed to %s", key)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.subs[key] = cancel
	c.mu.Unlock()

	body, err := c.t.stream(streamCtx, configPath(req.StoreName)+"/subscribe", configQuery(req))
	if err != nil {
		c.removeSub(key)
		cancel()
		return nil, err
	}

	ch := make(chan core.ConfigurationUpdate, 8)
	go func() {
		defer c.removeSub(key)
		defer cancel()
		defer close(ch)
		defer func() { _ = body.Close() }()

		readEvents(body, func(payload []byte) {
			var update core.ConfigurationUpdate
			if err := json.Unmarshal(payload, &update); err != nil {
				c.t.logger.Warn().Err(err).Str("store", req.StoreName).Msg("dropping undecodable update")
				return
			}
			select {
			case ch <- update:
			case <-streamCtx.Done():
			}
		})
	}()
	return ch, nil
}

func (c *configurationClient) UnsubscribeConfiguration(_ context.Context, storeName, appID string) error {
	key := storeName + "/" + appID
	c.mu.Lock()
	cancel, ok := c.subs[key]
	c.mu.Unlock()
	if !ok {
		return cloudruntimes.Errorf(cloudruntimes.CodeNotFound, "no active subscription for %s", key)
	}
	cancel()
	return nil
}

func (c *configurationClient) removeSub(key string) {
	c.mu.Lock()
	delete(c.subs, key)
	c.mu.Unlock()
}

func (c *configurationClient) close() {
	c.mu.Lock()
	for _, cancel := range c.subs {
		cancel()
	}
	c.subs = make(map[string]context.CancelFunc)
	c.mu.Unlock()
}
