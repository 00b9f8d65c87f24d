package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
)

func newTransportForURL(t *testing.T, url string, timeout time.Duration) *transport {
	t.Helper()
	tr, err := newTransport(url, nil, timeout, "", zerolog.Nop())
	require.NoError(t, err)
	return tr
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"CR_CONFLICT_ERROR","message":"etag mismatch","details":{"key":"doc"}}`))
	}))
	defer srv.Close()

	tr := newTransportForURL(t, srv.URL, time.Second)
	_, err := tr.do(context.Background(), &request{method: http.MethodPost, path: "/x"})
	require.Error(t, err)

	var coded *cloudruntimes.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, cloudruntimes.CodeConflict, coded.Code)
	assert.Equal(t, "etag mismatch", coded.Message)
	assert.Equal(t, "doc", coded.Details["key"])
}

func TestNonEnvelopeErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusNotImplemented)
	}))
	defer srv.Close()

	tr := newTransportForURL(t, srv.URL, time.Second)
	_, err := tr.do(context.Background(), &request{method: http.MethodPost, path: "/x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cloudruntimes.ErrNotImplemented)
}

func TestIdempotentRetryOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := newTransportForURL(t, srv.URL, 5*time.Second)
	resp, err := tr.do(context.Background(), &request{method: http.MethodGet, path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), resp.body)
	assert.EqualValues(t, 3, calls.Load())
}

func TestNoRetryForNonIdempotentVerbs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := newTransportForURL(t, srv.URL, 5*time.Second)
	_, err := tr.do(context.Background(), &request{method: http.MethodPost, path: "/x"})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestUnreachableSidecarIsNetworkError(t *testing.T) {
	tr := newTransportForURL(t, "http://127.0.0.1:1", time.Second)
	_, err := tr.do(context.Background(), &request{method: http.MethodPost, path: "/x"})
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeNetwork, cloudruntimes.Code(err))
}

func TestPerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr := newTransportForURL(t, srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := tr.do(context.Background(), &request{method: http.MethodPost, path: "/x"})
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeTimeout, cloudruntimes.Code(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAppIDHeaderAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-App-ID")
	}))
	defer srv.Close()

	tr, err := newTransport(srv.URL, nil, time.Second, "checkout", zerolog.Nop())
	require.NoError(t, err)
	_, err = tr.do(context.Background(), &request{method: http.MethodGet, path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, "checkout", got)
}
