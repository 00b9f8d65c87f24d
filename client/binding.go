package client

import (
	"context"
	"net/http"
	"net/url"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

type bindingClient struct {
	t *transport
}

var _ core.Binding = (*bindingClient)(nil)

func (c *bindingClient) InvokeBinding(ctx context.Context, name, operation string, data []byte) (*core.InvokeBindingResponse, error) {
	return c.InvokeBindingWithRequest(ctx, &core.InvokeBindingRequest{
		Name:      name,
		Operation: operation,
		Data:      data,
	})
}

type invokeBindingBody struct {
	Operation string        `json:"operation"`
	Data      []byte        `json:"data,omitempty"`
	Metadata  core.Metadata `json:"metadata,omitempty"`
}

func (c *bindingClient) InvokeBindingWithRequest(ctx context.Context, req *core.InvokeBindingRequest) (*core.InvokeBindingResponse, error) {
	if req.Name == "" || req.Operation == "" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "binding name and operation required")
	}

	var resp core.InvokeBindingResponse
	body := invokeBindingBody{Operation: req.Operation, Data: req.Data, Metadata: req.Metadata}
	err := c.t.doJSON(ctx, http.MethodPost, "/v1.0/bindings/"+url.PathEscape(req.Name), nil, body, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type bindingList struct {
	Inputs  []core.BindingInfo `json:"inputs"`
	Outputs []core.BindingInfo `json:"outputs"`
}

func (c *bindingClient) list(ctx context.Context) (*bindingList, error) {
	var out bindingList
	if err := c.t.doJSON(ctx, http.MethodGet, "/v1.0/bindings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *bindingClient) ListInputBindings(ctx context.Context) ([]core.BindingInfo, error) {
	list, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	return list.Inputs, nil
}

func (c *bindingClient) ListOutputBindings(ctx context.Context) ([]core.BindingInfo, error) {
	list, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	return list.Outputs, nil
}
