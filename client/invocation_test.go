package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/api"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/config"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/configstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/health"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/invoke"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// newInvokeDaemon wires a daemon whose invoker and bindings point at the
// given application backend.
func newInvokeDaemon(t *testing.T, appURL string) *httptest.Server {
	t.Helper()

	stateStore := state.NewMemoryStore()
	t.Cleanup(func() { _ = stateStore.Close() })

	cfgStore, err := configstore.New("default", filepath.Join(t.TempDir(), "config.yaml"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfgStore.Close() })

	proxy := invoke.NewProxy(nil, 0)
	proxy.Register("orders", appURL)

	registry := binding.NewRegistry(nil)
	registry.Register("webhook", binding.DirectionOutput, appURL+"/hook", map[string]string{"X-Source": "cloudrt"})

	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	deps := api.Deps{
		Config:   cfg,
		Health:   health.NewManager("test"),
		States:   map[string]state.Store{"default": stateStore},
		Invoker:  proxy,
		Bindings: registry,
	}
	srv := httptest.NewServer(api.NewServer(deps).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestInvokeMethod(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/create", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
	}))
	defer app.Close()

	srv := newInvokeDaemon(t, app.URL)
	c := newTestClient(t, srv)

	data, err := c.Invocation().InvokeMethod(context.Background(), "orders", "orders/create", http.MethodPost, []byte(`{"id":7}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":{"id":7}}`, string(data))
}

func TestInvokeJSON(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]int{"doubled": in["n"] * 2}))
	}))
	defer app.Close()

	srv := newInvokeDaemon(t, app.URL)
	c := newTestClient(t, srv)

	var out struct {
		Doubled int `json:"doubled"`
	}
	err := c.Invocation().InvokeJSON(context.Background(), "orders", "math/double", map[string]int{"n": 21}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Doubled)
}

func TestInvokeUnknownApp(t *testing.T) {
	srv := newInvokeDaemon(t, "http://127.0.0.1:1")
	c := newTestClient(t, srv)

	_, err := c.Invocation().InvokeMethod(context.Background(), "ghost", "ping", http.MethodGet, nil)
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeNotFound, cloudruntimes.Code(err))
}

func TestBindingInvokeAndList(t *testing.T) {
	var gotHeader string
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Source")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	defer app.Close()

	srv := newInvokeDaemon(t, app.URL)
	c := newTestClient(t, srv)
	ctx := context.Background()

	resp, err := c.Binding().InvokeBinding(ctx, "webhook", "create", []byte(`{"event":"deploy"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"accepted":true}`, string(resp.Data))
	assert.Equal(t, "cloudrt", gotHeader)

	outputs, err := c.Binding().ListOutputBindings(ctx)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "webhook", outputs[0].Name)
	assert.Contains(t, outputs[0].Operations, "create")

	inputs, err := c.Binding().ListInputBindings(ctx)
	require.NoError(t, err)
	assert.Empty(t, inputs)

	_, err = c.Binding().InvokeBinding(ctx, "ghost", "create", nil)
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeNotFound, cloudruntimes.Code(err))

	var coreReq = &core.InvokeBindingRequest{Name: "webhook", Operation: "teleport"}
	_, err = c.Binding().InvokeBindingWithRequest(ctx, coreReq)
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeParam, cloudruntimes.Code(err))
}
