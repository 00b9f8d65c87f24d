package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

type fileClient struct {
	t *transport
}

var _ enhanced.File = (*fileClient)(nil)

// filePath keeps slashes in the file path significant while escaping each
// segment.
func (c *fileClient) path(store, p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/v1.0/files/" + url.PathEscape(store) + "/" + strings.Join(segments, "/")
}

func (c *fileClient) GetFile(ctx context.Context, storeName, path string) ([]byte, error) {
	if storeName == "" || path == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and path required")
	}
	resp, err := c.t.do(ctx, &request{method: http.MethodGet, path: c.path(storeName, path)})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (c *fileClient) PutFile(ctx context.Context, req *enhanced.PutFileRequest) error {
	if req.StoreName == "" || req.Path == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and path required")
	}
	_, err := c.t.do(ctx, &request{
		method:      http.MethodPut,
		path:        c.path(req.StoreName, req.Path),
		body:        req.Data,
		contentType: req.ContentType,
	})
	return err
}

func (c *fileClient) ListFiles(ctx context.Context, req *enhanced.ListFilesRequest) ([]enhanced.FileInfo, error) {
	if req.StoreName == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name required")
	}

	q := url.Values{}
	if req.Prefix != "" {
		q.Set("prefix", req.Prefix)
	}
	if req.Recursive {
		q.Set("recursive", "true")
	}

	var files []enhanced.FileInfo
	err := c.t.doJSON(ctx, http.MethodGet, "/v1.0/files/"+url.PathEscape(req.StoreName)+"/", q, nil, &files)
	if err != nil {
		return nil, err
	}
	return files, nil
}

type fileOpBody struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	Dest string `json:"dest,omitempty"`
}

func (c *fileClient) op(ctx context.Context, store string, body fileOpBody, out any) error {
	return c.t.doJSON(ctx, http.MethodPost, "/v1.0/files/"+url.PathEscape(store)+"/op", nil, body, out)
}

func (c *fileClient) StatFile(ctx context.Context, storeName, path string) (*enhanced.FileInfo, error) {
	if storeName == "" || path == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and path required")
	}
	var info enhanced.FileInfo
	if err := c.op(ctx, storeName, fileOpBody{Op: "stat", Path: path}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *fileClient) DeleteFile(ctx context.Context, storeName, path string) error {
	if storeName == "" || path == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and path required")
	}
	_, err := c.t.do(ctx, &request{method: http.MethodDelete, path: c.path(storeName, path)})
	return err
}

func (c *fileClient) CopyFile(ctx context.Context, storeName, src, dst string) error {
	if storeName == "" || src == "" || dst == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name, src and dst required")
	}
	return c.op(ctx, storeName, fileOpBody{Op: "copy", Path: src, Dest: dst}, nil)
}

func (c *fileClient) MoveFile(ctx context.Context, storeName, src, dst string) error {
	if storeName == "" || src == "" || dst == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name, src and dst required")
	}
	return c.op(ctx, storeName, fileOpBody{Op: "move", Path: src, Dest: dst}, nil)
}

func (c *fileClient) CreateDirectory(ctx context.Context, storeName, path string) error {
	if storeName == "" || path == "" {
		return cloudruntimes.Errorf(cloudruntimes.CodeParam, "store name and path required")
	}
	return c.op(ctx, storeName, fileOpBody{Op: "mkdir", Path: path}, nil)
}
