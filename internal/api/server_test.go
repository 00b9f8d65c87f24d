package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/binding"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/config"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/configstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/health"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/invoke"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/lock"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/objstore"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/pubsub"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/saas"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/secrets"
	"github.com/cloud-runtimes/cloudruntimes-go/internal/state"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	stateStore := state.NewMemoryStore()
	t.Cleanup(func() { _ = stateStore.Close() })

	cfgStore, err := configstore.New("default", filepath.Join(t.TempDir(), "config.yaml"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfgStore.Close() })

	fileStore, err := objstore.New("default", t.TempDir())
	require.NoError(t, err)

	outbox := saas.NewOutbox(stateStore)
	provider := saas.NewProvider(outbox, "")

	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	deps := Deps{
		Config:       cfg,
		Health:       health.NewManager("test"),
		States:       map[string]state.Store{"default": stateStore},
		Brokers:      map[string]*pubsub.Broker{"default": pubsub.NewBroker("default", 8)},
		ConfigStores: map[string]*configstore.Store{"default": cfgStore},
		SecretStores: map[string]secrets.Store{"env": secrets.NewEnvStore("env", "CRT_TEST_")},
		LockStores:   map[string]lock.Store{"default": lock.NewMemoryStore("default")},
		FileStores:   map[string]*objstore.Store{"default": fileStore},
		Invoker:      invoke.NewProxy(nil, 0),
		Bindings:     binding.NewRegistry(nil),
		Email:        provider,
		SMS:          provider,
	}
	srv := httptest.NewServer(NewServer(deps).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

func decodeEnvelope(t *testing.T, data []byte) *cloudruntimes.Error {
	t.Helper()
	var e cloudruntimes.Error
	require.NoError(t, json.Unmarshal(data, &e))
	return &e
}

func TestStateRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default", []core.SetStateItem{
		{Key: "order-1", Value: []byte(`{"total":42}`)},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1.0/state/default/order-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":42}`, string(data))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1.0/state/default/order-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/state/default/order-1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeNotFound, decodeEnvelope(t, data).Code)
}

func TestUnknownStoreIsNotImplemented(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/v1.0/state/nope/k", nil},
		{http.MethodPost, "/v1.0/publish/nope/topic", map[string]string{}},
		{http.MethodGet, "/v1.0/configuration/nope?appid=a", nil},
		{http.MethodGet, "/v1.0/secrets/nope/k", nil},
		{http.MethodPost, "/v1.0/lock/nope/try", map[string]any{"resource": "r", "ttl_seconds": 5}},
		{http.MethodGet, "/v1.0/files/nope/x", nil},
	}
	for _, tc := range paths {
		resp, data := doJSON(t, tc.method, srv.URL+tc.path, tc.body)
		require.Equal(t, http.StatusNotImplemented, resp.StatusCode, tc.path)
		assert.Equal(t, cloudruntimes.CodeNotImplemented, decodeEnvelope(t, data).Code, tc.path)
	}
}

func TestStateConflictOnStaleETag(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default", []core.SetStateItem{
		{Key: "k", Value: []byte(`"v1"`)},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default", []core.SetStateItem{
		{Key: "k", Value: []byte(`"v2"`), ETag: "stale", Options: &core.StateOptions{Concurrency: core.ConcurrencyFirstWrite}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeConflict, decodeEnvelope(t, data).Code)
}

func TestStateBulkPreservesOrder(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default", []core.SetStateItem{
		{Key: "a", Value: []byte(`1`)},
		{Key: "c", Value: []byte(`3`)},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default/bulk", map[string]any{
		"keys": []string{"a", "b", "c"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []core.BulkStateItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Key)
	assert.Equal(t, "b", items[1].Key)
	assert.NotEmpty(t, items[1].Error)
	assert.Equal(t, "c", items[2].Key)
	assert.Equal(t, []byte(`3`), items[2].Value)
}

func TestStateTransactionAtomicity(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1.0/state/default/transaction", map[string]any{
		"operations": []core.TransactionOperation{
			{Type: core.OperationUpsert, Item: core.SetStateItem{Key: "t1", Value: []byte(`"x"`)}},
			{Type: core.OperationUpsert, Item: core.SetStateItem{
				Key: "t2", Value: []byte(`"y"`), ETag: "stale",
				Options: &core.StateOptions{Concurrency: core.ConcurrencyFirstWrite},
			}},
		},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Nothing from the failed transaction is visible.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1.0/state/default/t1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishAndSubscribe(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subReq, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1.0/subscribe/default/orders", nil)
	require.NoError(t, err)
	subResp, err := http.DefaultClient.Do(subReq)
	require.NoError(t, err)
	defer subResp.Body.Close()
	require.Equal(t, http.StatusOK, subResp.StatusCode)
	require.Equal(t, "text/event-stream", subResp.Header.Get("Content-Type"))

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/publish/default/orders", map[string]string{"sku": "x"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var published map[string]string
	require.NoError(t, json.Unmarshal(data, &published))
	require.NotEmpty(t, published["id"])

	reader := bufio.NewReader(subResp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev core.TopicEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		assert.Equal(t, published["id"], ev.ID)
		assert.Equal(t, "orders", ev.Topic)
		assert.JSONEq(t, `{"sku":"x"}`, string(ev.Data))
		break
	}
}

func TestConfigurationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1.0/configuration/default", map[string]any{
		"app_id": "checkout",
		"items": []core.ConfigurationItem{
			{Key: "timeout_ms", Value: "2500"},
			{Key: "feature.x", Value: "on", Group: "flags"},
		},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1.0/configuration/default?appid=checkout&key=timeout_ms", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []core.ConfigurationItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "2500", items[0].Value)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1.0/configuration/default?appid=checkout&group=flags", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/configuration/default?appid=checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "timeout_ms", items[0].Key)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1.0/configuration/default", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSecretsEndpoints(t *testing.T) {
	t.Setenv("CRT_TEST_DB_PASSWORD", "hunter2")
	t.Setenv("CRT_TEST_API_KEY", "abc")
	srv := newTestServer(t)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1.0/secrets/env/DB_PASSWORD", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var secret map[string]string
	require.NoError(t, json.Unmarshal(data, &secret))
	assert.Equal(t, "hunter2", secret["DB_PASSWORD"])

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/secrets/env/bulk", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &all))
	assert.Contains(t, all, "DB_PASSWORD")
	assert.Contains(t, all, "API_KEY")

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/secrets/env/MISSING", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeNotFound, decodeEnvelope(t, data).Code)
}

func TestLockEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/lock/default/try", map[string]any{
		"resource": "job-7", "ttl_seconds": 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var try enhanced.TryLockResponse
	require.NoError(t, json.Unmarshal(data, &try))
	require.True(t, try.Success)
	require.NotEmpty(t, try.Owner)

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/lock/default/try", map[string]any{
		"resource": "job-7", "owner": "intruder", "ttl_seconds": 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second enhanced.TryLockResponse
	require.NoError(t, json.Unmarshal(data, &second))
	assert.False(t, second.Success)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/lock/default/job-7", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status enhanced.LockStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.True(t, status.Locked)
	assert.Equal(t, try.Owner, status.Owner)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1.0/lock/default/renew", map[string]any{
		"resource": "job-7", "owner": try.Owner, "ttl_seconds": 60,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/lock/default/unlock", map[string]any{
		"resource": "job-7", "owner": "intruder",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unlock enhanced.UnlockResponse
	require.NoError(t, json.Unmarshal(data, &unlock))
	assert.Equal(t, enhanced.UnlockBelongsToOther, unlock.Status)

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/lock/default/unlock", map[string]any{
		"resource": "job-7", "owner": try.Owner,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &unlock))
	assert.Equal(t, enhanced.UnlockSuccess, unlock.Status)
}

func TestFileEndpoints(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1.0/files/default/docs/a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/v1.0/files/default/docs/a.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(data))

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1.0/files/default/op", map[string]string{
		"op": "copy", "path": "docs/a.txt", "dest": "docs/b.txt",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/files/default/?prefix=docs&recursive=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var files []enhanced.FileInfo
	require.NoError(t, json.Unmarshal(data, &files))
	assert.Len(t, files, 2)

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/files/default/op", map[string]string{
		"op": "stat", "path": "docs/b.txt",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info enhanced.FileInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, int64(5), info.Size)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1.0/files/default/docs/a.txt", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/files/default/docs/a.txt", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeNotFound, decodeEnvelope(t, data).Code)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/files/default/..%2Fescape", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeParam, decodeEnvelope(t, data).Code)
}

func TestSaaSEmailEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/saas/email", map[string]any{
		"from": "noreply@example.com", "to": []string{"u@example.com"},
		"subject": "Hi", "body": "Hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]string
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotEmpty(t, result["message_id"])
	assert.Equal(t, "sent", result["status"])

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/saas/email/"+result["message_id"]+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]string
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "sent", status["status"])

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/saas/email", map[string]any{
		"from": "bad", "to": []string{"u@example.com"}, "subject": "s", "body": "b",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeParam, decodeEnvelope(t, data).Code)
}

func TestSaaSDisabledIsNotImplemented(t *testing.T) {
	deps := Deps{
		Config: config.Default(),
		Health: health.NewManager("test"),
	}
	deps.Config.RateLimit.Enabled = false
	srv := httptest.NewServer(NewServer(deps).Router())
	defer srv.Close()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/saas/sms", map[string]any{
		"to": []string{"+491701234567"}, "body": "x",
	})
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeNotImplemented, decodeEnvelope(t, data).Code)
}

func TestInvokeEndpointProxies(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "limit=2", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orders":[]}`))
	}))
	defer app.Close()

	stateStore := state.NewMemoryStore()
	defer stateStore.Close()
	proxy := invoke.NewProxy(app.Client(), 0)
	proxy.Register("orders", app.URL)
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	srv := httptest.NewServer(NewServer(Deps{
		Config:  cfg,
		Health:  health.NewManager("test"),
		States:  map[string]state.Store{"default": stateStore},
		Invoker: proxy,
	}).Router())
	defer srv.Close()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/invoke/orders/method/api/orders?limit=2", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"orders":[]}`, string(data))

	resp, data = doJSON(t, http.MethodPost, srv.URL+"/v1.0/invoke/ghost/method/x", map[string]string{})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, cloudruntimes.CodeNotFound, decodeEnvelope(t, data).Code)
}

func TestBindingEndpoints(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "bound")
	}))
	defer backend.Close()

	stateStore := state.NewMemoryStore()
	defer stateStore.Close()
	reg := binding.NewRegistry(backend.Client())
	reg.Register("hook", binding.DirectionOutput, backend.URL, nil)
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	srv := httptest.NewServer(NewServer(Deps{
		Config:   cfg,
		Health:   health.NewManager("test"),
		States:   map[string]state.Store{"default": stateStore},
		Bindings: reg,
	}).Router())
	defer srv.Close()

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/v1.0/bindings/hook", map[string]any{"operation": "create"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out core.InvokeBindingResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "bound", string(out.Data))

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/v1.0/bindings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list bindingListResponse
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Outputs, 1)
	assert.Equal(t, "hook", list.Outputs[0].Name)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready health.Response
	require.NoError(t, json.Unmarshal(data, &ready))
	assert.Equal(t, health.StatusHealthy, ready.Status)

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "cloudrt_")
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "rid-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "rid-123", resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
