package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/native"
)

// objectStoreClient talks to the daemon's object API. The store name picks
// which configured backend the buckets live in.
type objectStoreClient struct {
	t     *transport
	store string
}

var _ native.ObjectStore = (*objectStoreClient)(nil)

func (c *objectStoreClient) basePath() string {
	return "/v1.0/objects/" + url.PathEscape(c.store)
}

func (c *objectStoreClient) objectPath(bucket, key string) string {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.basePath() + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

func (c *objectStoreClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket and key required")
	}
	resp, err := c.t.do(ctx, &request{method: http.MethodGet, path: c.objectPath(bucket, key)})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (c *objectStoreClient) PutObject(ctx context.Context, req *native.PutObjectRequest) error {
	if req.Bucket == "" || req.Key == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket and key required")
	}
	_, err := c.t.do(ctx, &request{
		method:      http.MethodPut,
		path:        c.objectPath(req.Bucket, req.Key),
		body:        req.Data,
		contentType: req.ContentType,
	})
	return err
}

func (c *objectStoreClient) HeadObject(ctx context.Context, bucket, key string) (*native.ObjectInfo, error) {
	if bucket == "" || key == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket and key required")
	}
	var info native.ObjectInfo
	q := url.Values{"meta": []string{"true"}}
	if err := c.t.doJSON(ctx, http.MethodGet, c.objectPath(bucket, key), q, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *objectStoreClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if bucket == "" || key == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket and key required")
	}
	_, err := c.t.do(ctx, &request{method: http.MethodDelete, path: c.objectPath(bucket, key)})
	return err
}

func (c *objectStoreClient) ListObjects(ctx context.Context, req *native.ListObjectsRequest) ([]native.ObjectInfo, error) {
	if req.Bucket == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket required")
	}

	q := url.Values{}
	if req.Prefix != "" {
		q.Set("prefix", req.Prefix)
	}
	if req.MaxKeys > 0 {
		q.Set("max_keys", strconv.Itoa(req.MaxKeys))
	}

	var objects []native.ObjectInfo
	err := c.t.doJSON(ctx, http.MethodGet, c.basePath()+"/"+url.PathEscape(req.Bucket), q, nil, &objects)
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (c *objectStoreClient) CreateBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket required")
	}
	return c.t.doJSON(ctx, http.MethodPost, c.basePath()+"/"+url.PathEscape(bucket), nil, nil, nil)
}

func (c *objectStoreClient) DeleteBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "bucket required")
	}
	_, err := c.t.do(ctx, &request{method: http.MethodDelete, path: c.basePath() + "/" + url.PathEscape(bucket)})
	return err
}

func (c *objectStoreClient) ListBuckets(ctx context.Context) ([]string, error) {
	var buckets []string
	if err := c.t.doJSON(ctx, http.MethodGet, c.basePath()+"/", nil, nil, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}
