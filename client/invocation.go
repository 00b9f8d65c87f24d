package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type invocationClient struct {
	t *transport
}

var _ core.Invocation = (*invocationClient)(nil)

func (c *invocationClient) InvokeMethod(ctx context.Context, appID, method, verb string, data []byte) ([]byte, error) {
	resp, err := c.InvokeMethodWithRequest(ctx, &core.InvokeMethodRequest{
		AppID:  appID,
		Method: method,
		Verb:   verb,
		Data:   data,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *invocationClient) InvokeMethodWithRequest(ctx context.Context, req *core.InvokeMethodRequest) (*core.InvokeMethodResponse, error) {
	if req.AppID == "" || req.Method == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "app id and method required")
	}

	verb := req.Verb
	if verb == "" {
		verb = http.MethodPost
	}

	call := &request{
		method:      verb,
		path:        "/v1.0/invoke/" + url.PathEscape(req.AppID) + "/method/" + strings.TrimPrefix(req.Method, "/"),
		body:        req.Data,
		contentType: req.ContentType,
	}
	if req.QueryString != "" {
		q, err := url.ParseQuery(req.QueryString)
		if err != nil {
			return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "invalid query string: %v", err)
		}
		call.query = q
	}
	if len(req.Metadata) > 0 {
		call.header = http.Header{}
		for k, v := range req.Metadata {
			call.header.Set(k, v)
		}
	}

	resp, err := c.t.do(ctx, call)
	if err != nil {
		return nil, err
	}
	return &core.InvokeMethodResponse{
		Data:        resp.body,
		ContentType: resp.header.Get("Content-Type"),
	}, nil
}

func (c *invocationClient) InvokeJSON(ctx context.Context, appID, method string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return cloudruntimes.Errorf(cloudruntimes.CodeParam, "encoding request: %v", err)
		}
	}

	resp, err := c.InvokeMethodWithRequest(ctx, &core.InvokeMethodRequest{
		AppID:       appID,
		Method:      method,
		Verb:        http.MethodPost,
		Data:        body,
		ContentType: core.ContentTypeJSON,
	})
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "decoding response")
	}
	return nil
}
