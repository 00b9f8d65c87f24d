package invoke

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func TestInvokeRoutesToApp(t *testing.T) {
	var gotPath, gotVerb, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVerb = r.Method
		gotHeader = r.Header.Get("X-Tenant")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	p := NewProxy(srv.Client(), 0)
	p.Register("orders", srv.URL)

	resp, status, err := p.Invoke(context.Background(), &core.InvokeMethodRequest{
		AppID:       "orders",
		Method:      "api/checkout",
		Verb:        http.MethodPut,
		Data:        []byte(`{"sku":"x"}`),
		ContentType: "application/json",
		Metadata:    core.Metadata{"X-Tenant": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/api/checkout", gotPath)
	assert.Equal(t, http.MethodPut, gotVerb)
	assert.Equal(t, "acme", gotHeader)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Data))
	assert.Equal(t, "application/json", resp.ContentType)
}

func TestInvokeUnknownApp(t *testing.T) {
	p := NewProxy(nil, 0)
	_, _, err := p.Invoke(context.Background(), &core.InvokeMethodRequest{AppID: "ghost", Method: "m"})
	assert.ErrorIs(t, err, ErrAppNotFound)
}

func TestInvokeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	p := NewProxy(srv.Client(), 0)
	p.Register("flaky", srv.URL)

	resp, status, err := p.Invoke(context.Background(), &core.InvokeMethodRequest{AppID: "flaky", Method: "m"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "recovered", string(resp.Data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvokeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such route"))
	}))
	defer srv.Close()

	p := NewProxy(srv.Client(), 0)
	p.Register("app", srv.URL)

	resp, status, err := p.Invoke(context.Background(), &core.InvokeMethodRequest{AppID: "app", Method: "m"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no such route", string(resp.Data))
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeOpensBreakerAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProxy(srv.Client(), 0)
	p.Register("down", srv.URL)

	ctx := context.Background()
	req := &core.InvokeMethodRequest{AppID: "down", Method: "m"}

	// Two invocations of three attempts each exhaust the threshold of five
	// failures; the breaker opens during the second.
	_, _, err := p.Invoke(ctx, req)
	assert.ErrorIs(t, err, ErrAppFailure)
	_, _, err = p.Invoke(ctx, req)
	require.Error(t, err)

	// With the breaker open the app is no longer called.
	_, _, err = p.Invoke(ctx, req)
	assert.Error(t, err)
}

func TestRegisterListsApps(t *testing.T) {
	p := NewProxy(nil, 0)
	p.Register("a", "http://localhost:1")
	p.Register("b", "http://localhost:2")
	assert.ElementsMatch(t, []string{"a", "b"}, p.Apps())
}
