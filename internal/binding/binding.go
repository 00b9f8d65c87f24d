// Package binding implements the resource binding registry. The daemon
// ships one binding type, http, whose operations map to request methods
// against a configured URL.
package binding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// Directions a binding can be declared with.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Operations supported by the http binding type.
var httpOperations = []string{"create", "get", "delete", "post", "put", "patch"}

var (
	// ErrBindingNotFound is returned for unknown binding names.
	ErrBindingNotFound = errors.New("binding: not found")
	// ErrUnsupportedOperation is returned for operations outside the
	// binding's set.
	ErrUnsupportedOperation = errors.New("binding: unsupported operation")
)

const maxResponseBytes = 32 << 20

type httpBinding struct {
	name      string
	direction string
	url       string
	metadata  core.Metadata
}

// Registry holds the configured bindings.
type Registry struct {
	client *http.Client

	mu       sync.RWMutex
	bindings map[string]*httpBinding
}

// NewRegistry creates a binding registry. client may be nil.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Registry{
		client:   client,
		bindings: make(map[string]*httpBinding),
	}
}

// Register adds an http binding. Direction defaults to output.
func (r *Registry) Register(name, direction, url string, metadata map[string]string) {
	if direction == "" {
		direction = DirectionOutput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[name] = &httpBinding{
		name:      name,
		direction: direction,
		url:       url,
		metadata:  metadata,
	}
}

// List returns the bindings declared with the given direction, sorted by
// name.
func (r *Registry) List(direction string) []core.BindingInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.BindingInfo
	for _, b := range r.bindings {
		if b.direction != direction {
			continue
		}
		info := core.BindingInfo{Name: b.name, Type: "http", Metadata: b.metadata}
		if direction == DirectionOutput {
			info.Operations = httpOperations
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke performs one operation against an output binding. The operation
// picks the HTTP method: create and post map to POST, get to GET, delete
// to DELETE, put to PUT, patch to PATCH.
func (r *Registry) Invoke(ctx context.Context, req *core.InvokeBindingRequest) (*core.InvokeBindingResponse, error) {
	r.mu.RLock()
	b, ok := r.bindings[req.Name]
	r.mu.RUnlock()
	if !ok || b.direction != DirectionOutput {
		return nil, fmt.Errorf("%w: %s", ErrBindingNotFound, req.Name)
	}

	method, err := methodFor(req.Operation)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := r.roundTrip(ctx, b, method, req)
	metrics.ObserveOperation("binding", req.Operation, err, time.Since(started))
	return resp, err
}

func methodFor(operation string) (string, error) {
	switch strings.ToLower(operation) {
	case "create", "post":
		return http.MethodPost, nil
	case "get":
		return http.MethodGet, nil
	case "delete":
		return http.MethodDelete, nil
	case "put":
		return http.MethodPut, nil
	case "patch":
		return http.MethodPatch, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedOperation, operation)
	}
}

func (r *Registry) roundTrip(ctx context.Context, b *httpBinding, method string, req *core.InvokeBindingRequest) (*core.InvokeBindingResponse, error) {
	var body io.Reader
	if len(req.Data) > 0 && method != http.MethodGet {
		body = bytes.NewReader(req.Data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, b.url, body)
	if err != nil {
		return nil, err
	}
	// Binding-level metadata first, request metadata overrides.
	for k, v := range b.metadata {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Metadata {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" && body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("binding %s: %s returned status %d", b.name, req.Operation, httpResp.StatusCode)
	}

	return &core.InvokeBindingResponse{
		Data:     data,
		Metadata: core.Metadata{"status_code": fmt.Sprint(httpResp.StatusCode)},
	}, nil
}
