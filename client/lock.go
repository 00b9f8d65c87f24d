package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

type lockClient struct {
	t *transport
}

var _ enhanced.Lock = (*lockClient)(nil)

func lockPath(store, suffix string) string {
	return "/v1.0/lock/" + url.PathEscape(store) + "/" + suffix
}

type tryLockBody struct {
	Resource   string `json:"resource"`
	Owner      string `json:"owner,omitempty"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func ttlSeconds(ttl time.Duration) int {
	return int(ttl.Round(time.Second) / time.Second)
}

func (c *lockClient) TryLock(ctx context.Context, req *enhanced.TryLockRequest) (*enhanced.TryLockResponse, error) {
	if req.StoreName == "" || req.Resource == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and resource required")
	}
	if req.TTL <= 0 {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "ttl must be positive")
	}

	body := tryLockBody{Resource: req.Resource, Owner: req.Owner, TTLSeconds: ttlSeconds(req.TTL)}
	var resp enhanced.TryLockResponse
	if err := c.t.doJSON(ctx, http.MethodPost, lockPath(req.StoreName, "try"), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type unlockBody struct {
	Resource string `json:"resource"`
	Owner    string `json:"owner"`
}

func (c *lockClient) Unlock(ctx context.Context, req *enhanced.UnlockRequest) (*enhanced.UnlockResponse, error) {
	if req.StoreName == "" || req.Resource == "" || req.Owner == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name, resource and owner required")
	}

	body := unlockBody{Resource: req.Resource, Owner: req.Owner}
	var resp enhanced.UnlockResponse
	if err := c.t.doJSON(ctx, http.MethodPost, lockPath(req.StoreName, "unlock"), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type renewBody struct {
	Resource   string `json:"resource"`
	Owner      string `json:"owner"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func (c *lockClient) RenewLock(ctx context.Context, storeName, resource, owner string, ttl time.Duration) error {
	if storeName == "" || resource == "" || owner == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name, resource and owner required")
	}
	if ttl <= 0 {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "ttl must be positive")
	}
	body := renewBody{Resource: resource, Owner: owner, TTLSeconds: ttlSeconds(ttl)}
	return c.t.doJSON(ctx, http.MethodPost, lockPath(storeName, "renew"), nil, body, nil)
}

func (c *lockClient) GetLockStatus(ctx context.Context, storeName, resource string) (*enhanced.LockStatus, error) {
	if storeName == "" || resource == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and resource required")
	}
	var status enhanced.LockStatus
	if err := c.t.doJSON(ctx, http.MethodGet, lockPath(storeName, url.PathEscape(resource)), nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
