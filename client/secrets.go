package client

import (
	"context"
	"net/http"
	"net/url"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type secretsClient struct {
	t *transport
}

var _ core.Secrets = (*secretsClient)(nil)

func (c *secretsClient) GetSecret(ctx context.Context, storeName, key string) (core.Secret, error) {
	return c.GetSecretWithRequest(ctx, &core.GetSecretRequest{StoreName: storeName, Key: key})
}

func (c *secretsClient) GetSecretWithRequest(ctx context.Context, req *core.GetSecretRequest) (core.Secret, error) {
	if req.StoreName == "" || req.Key == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and key required")
	}

	var secret core.Secret
	path := "/v1.0/secrets/" + url.PathEscape(req.StoreName) + "/" + url.PathEscape(req.Key)
	if err := c.t.doJSON(ctx, http.MethodGet, path, nil, nil, &secret); err != nil {
		return nil, err
	}
	return secret, nil
}

func (c *secretsClient) GetBulkSecret(ctx context.Context, req *core.GetBulkSecretRequest) (map[string]core.Secret, error) {
	if req.StoreName == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name required")
	}

	q := url.Values{}
	for _, key := range req.Keys {
		q.Add("key", key)
	}

	var out map[string]core.Secret
	path := "/v1.0/secrets/" + url.PathEscape(req.StoreName) + "/bulk"
	if err := c.t.doJSON(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
