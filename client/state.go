package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// defaultBulkParallelism bounds concurrent gets when the request does not
// set its own limit.
const defaultBulkParallelism = 5

type stateClient struct {
	t *transport
}

var _ core.State = (*stateClient)(nil)

func statePath(store, key string) string {
	p := "/v1.0/state/" + url.PathEscape(store)
	if key != "" {
		p += "/" + url.PathEscape(key)
	}
	return p
}

func (c *stateClient) GetState(ctx context.Context, storeName, key string) (*core.StateItem, error) {
	return c.GetStateWithRequest(ctx, &core.GetStateRequest{StoreName: storeName, Key: key})
}

func (c *stateClient) GetStateWithRequest(ctx context.Context, req *core.GetStateRequest) (*core.StateItem, error) {
	if req.StoreName == "" || req.Key == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and key required")
	}

	resp, err := c.t.do(ctx, &request{method: http.MethodGet, path: statePath(req.StoreName, req.Key)})
	if err != nil {
		return nil, err
	}
	return &core.StateItem{
		Key:   req.Key,
		Value: resp.body,
		ETag:  resp.header.Get("ETag"),
	}, nil
}

// GetBulkState fans out individual gets, at most Parallelism at a time.
// Missing keys land in the item's Error field; any other failure aborts the
// batch. Results preserve request order.
func (c *stateClient) GetBulkState(ctx context.Context, req *core.GetBulkStateRequest) ([]core.BulkStateItem, error) {
	if req.StoreName == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name required")
	}
	if len(req.Keys) == 0 {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "at least one key required")
	}

	limit := req.Parallelism
	if limit <= 0 {
		limit = defaultBulkParallelism
	}

	out := make([]core.BulkStateItem, len(req.Keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, key := range req.Keys {
		g.Go(func() error {
			out[i].Key = key
			item, err := c.GetState(ctx, req.StoreName, key)
			if err != nil {
				var coded *cloudruntimes.Error
				if errors.As(err, &coded) && coded.Code == cloudruntimes.CodeNotFound {
					out[i].Error = coded.Message
					return nil
				}
				return err
			}
			out[i].Value = item.Value
			out[i].ETag = item.ETag
			out[i].Metadata = item.Metadata
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateClient) SaveState(ctx context.Context, storeName, key string, value []byte, opts ...core.StateOption) error {
	item := core.SetStateItem{Key: key, Value: value}
	for _, opt := range opts {
		opt(&item)
	}
	return c.SaveBulkState(ctx, &core.SaveStateRequest{StoreName: storeName, Items: []core.SetStateItem{item}})
}

func (c *stateClient) SaveBulkState(ctx context.Context, req *core.SaveStateRequest) error {
	if req.StoreName == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name required")
	}
	if len(req.Items) == 0 {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "at least one item required")
	}
	return c.t.doJSON(ctx, http.MethodPost, statePath(req.StoreName, ""), nil, req.Items, nil)
}

func (c *stateClient) DeleteState(ctx context.Context, storeName, key string, opts ...core.StateOption) error {
	if storeName == "" || key == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and key required")
	}

	item := core.SetStateItem{Key: key}
	for _, opt := range opts {
		opt(&item)
	}

	req := &request{method: http.MethodDelete, path: statePath(storeName, key)}
	if item.ETag != "" {
		req.header = http.Header{"If-Match": []string{item.ETag}}
	}
	if item.Options != nil && item.Options.Concurrency != core.ConcurrencyUndefined {
		req.query = url.Values{"concurrency": []string{item.Options.Concurrency.String()}}
	}
	_, err := c.t.do(ctx, req)
	return err
}

type stateTransactionBody struct {
	Operations []core.TransactionOperation `json:"operations"`
	Metadata   core.Metadata               `json:"metadata,omitempty"`
}

func (c *stateClient) ExecuteStateTransaction(ctx context.Context, req *core.ExecuteStateTransactionRequest) error {
	if req.StoreName == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name required")
	}
	if len(req.Operations) == 0 {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "at least one operation required")
	}
	body := stateTransactionBody{Operations: req.Operations, Metadata: req.Metadata}
	return c.t.doJSON(ctx, http.MethodPost, statePath(req.StoreName, "")+"/transaction", nil, body, nil)
}
