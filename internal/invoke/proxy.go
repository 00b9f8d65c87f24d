// Package invoke implements service invocation: the daemon proxies method
// calls to registered applications with per-app circuit breaking, retry on
// transient failures and an outbound rate limit.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/log"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/resilience"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

const (
	maxAttempts      = 3
	breakerThreshold = 5
	breakerReset     = 15 * time.Second
	maxResponseBytes = 32 << 20
)

// ErrAppNotFound is returned for invocations of unregistered app IDs.
var ErrAppNotFound = errors.New("invoke: app not registered")

// ErrAppFailure wraps 5xx responses from the target application.
var ErrAppFailure = errors.New("invoke: application returned server error")

type app struct {
	baseURL string
	breaker *resilience.CircuitBreaker
}

// Proxy routes invocation requests to registered applications.
type Proxy struct {
	client  *http.Client
	limiter *rate.Limiter

	mu   sync.RWMutex
	apps map[string]*app
}

// NewProxy creates a proxy. client may be nil; outboundRPS <= 0 disables
// the outbound limiter.
func NewProxy(client *http.Client, outboundRPS int) *Proxy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if outboundRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(outboundRPS), outboundRPS)
	}
	return &Proxy{
		client:  client,
		limiter: limiter,
		apps:    make(map[string]*app),
	}
}

// Register adds (or replaces) an application target.
func (p *Proxy) Register(appID, baseURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apps[appID] = &app{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		breaker: resilience.New("invoke/"+appID, breakerThreshold, breakerReset),
	}
}

// Apps returns the registered app IDs.
func (p *Proxy) Apps() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.apps))
	for id := range p.apps {
		out = append(out, id)
	}
	return out
}

// Invoke calls the method on the target application and returns its
// response. 5xx responses and transport errors count against the app's
// circuit breaker and are retried with backoff; 4xx responses pass through
// untouched.
func (p *Proxy) Invoke(ctx context.Context, req *core.InvokeMethodRequest) (*core.InvokeMethodResponse, int, error) {
	p.mu.RLock()
	target, ok := p.apps[req.AppID]
	p.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrAppNotFound, req.AppID)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	verb := req.Verb
	if verb == "" {
		verb = http.MethodPost
	}
	url := target.baseURL + "/" + strings.TrimPrefix(req.Method, "/")
	if req.QueryString != "" {
		url += "?" + req.QueryString
	}

	started := time.Now()
	var resp *core.InvokeMethodResponse
	var status int
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := target.breaker.Execute(func() error {
			var execErr error
			resp, status, execErr = p.roundTrip(ctx, verb, url, req)
			return execErr
		})
		if err == nil {
			metrics.ObserveOperation("invocation", "invoke", nil, time.Since(started))
			return resp, status, nil
		}
		lastErr = err
		if errors.Is(err, resilience.ErrCircuitOpen) || ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			log.FromContext(ctx).Debug().
				Str(log.FieldAppID, req.AppID).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(err).
				Msg("invocation attempt failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.ObserveOperation("invocation", "invoke", ctx.Err(), time.Since(started))
				return nil, 0, ctx.Err()
			}
		}
	}

	metrics.ObserveOperation("invocation", "invoke", lastErr, time.Since(started))
	return nil, status, lastErr
}

func (p *Proxy) roundTrip(ctx context.Context, verb, url string, req *core.InvokeMethodRequest) (*core.InvokeMethodResponse, int, error) {
	var body io.Reader
	if len(req.Data) > 0 {
		body = bytes.NewReader(req.Data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, verb, url, body)
	if err != nil {
		return nil, 0, err
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Metadata {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, httpResp.StatusCode, err
	}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, httpResp.StatusCode, fmt.Errorf("%w: status %d", ErrAppFailure, httpResp.StatusCode)
	}

	resp := &core.InvokeMethodResponse{
		Data:        data,
		ContentType: httpResp.Header.Get("Content-Type"),
		Metadata:    core.Metadata{},
	}
	return resp, httpResp.StatusCode, nil
}
