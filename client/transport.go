package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
)

const (
	maxAttempts      = 3
	maxResponseBytes = 32 << 20
)

// transport is the HTTP core every sidecar-backed namespace shares. It
// enforces the per-call timeout, retries idempotent requests on transient
// failures and turns error responses back into coded errors.
type transport struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
	appID   string
	logger  zerolog.Logger
}

func newTransport(endpoint string, client *http.Client, timeout time.Duration, appID string, logger zerolog.Logger) (*transport, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "invalid endpoint %q: %v", endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "endpoint %q must be http or https", endpoint)
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &transport{
		base:    base,
		client:  client,
		timeout: timeout,
		appID:   appID,
		logger:  logger,
	}, nil
}

// request carries one call to the daemon.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	header      http.Header
}

// response is the buffered reply.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (t *transport) url(path string, query url.Values) string {
	u := *t.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func retryable(method string, status int) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable
}

// do runs the request with the per-call timeout, retrying transient
// failures of idempotent verbs with quadratic backoff.
func (t *transport) do(ctx context.Context, req *request) (*response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := t.roundTrip(ctx, req)
		if err == nil {
			if resp.status < 400 {
				return resp, nil
			}
			coded := t.decodeError(resp)
			if !retryable(req.method, resp.status) {
				return nil, coded
			}
			lastErr = coded
		} else {
			if ctx.Err() != nil {
				return nil, classifyTransport(ctx.Err())
			}
			lastErr = classifyTransport(err)
			if req.method != http.MethodGet && req.method != http.MethodHead {
				return nil, lastErr
			}
		}

		if attempt < maxAttempts {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			t.logger.Debug().
				Str("method", req.method).
				Str("path", req.path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying request")
			select {
			case <-ctx.Done():
				return nil, classifyTransport(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}

func (t *transport) roundTrip(ctx context.Context, req *request) (*response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, t.url(req.path, req.query), body)
	if err != nil {
		return nil, err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.appID != "" {
		httpReq.Header.Set("X-App-ID", t.appID)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}, nil
}

// doJSON runs a JSON round trip: in is marshaled as the body (nil for no
// body), out is filled from the response when non-nil.
func (t *transport) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := &request{method: method, path: path, query: query}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return cloudruntimes.Errorf(cloudruntimes.CodeParam, "encoding request: %v", err)
		}
		req.body = body
		req.contentType = "application/json"
	}

	resp, err := t.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "decoding response")
	}
	return nil
}

// stream opens a long-lived request (server-sent events). The per-call
// timeout does not apply; the stream lives until ctx is cancelled.
func (t *transport) stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(path, query), nil)
	if err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeParam, err, "building stream request")
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.appID != "" {
		httpReq.Header.Set("X-App-ID", t.appID)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if httpResp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		_ = httpResp.Body.Close()
		return nil, t.decodeError(&response{status: httpResp.StatusCode, header: httpResp.Header, body: data})
	}
	return httpResp.Body, nil
}

// decodeError reconstructs the coded error from the daemon's envelope,
// falling back to the status-derived code when the body is not an envelope.
func (t *transport) decodeError(resp *response) error {
	var coded cloudruntimes.Error
	if err := json.Unmarshal(resp.body, &coded); err == nil && coded.Code != "" {
		return &coded
	}
	return cloudruntimes.Errorf(
		cloudruntimes.CodeFromHTTPStatus(resp.status),
		"sidecar returned status %d", resp.status,
	)
}

// classifyTransport maps connection-level failures onto the taxonomy.
func classifyTransport(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return cloudruntimes.Wrap(cloudruntimes.CodeTimeout, err, "request timed out")
	case errors.Is(err, context.Canceled):
		return cloudruntimes.Wrap(cloudruntimes.CodeNetwork, err, "request cancelled")
	default:
		return cloudruntimes.Wrap(cloudruntimes.CodeNetwork, err, fmt.Sprintf("sidecar unreachable: %v", err))
	}
}
