package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAggregatesWorstStatus(t *testing.T) {
	m := NewManager("test")
	m.Register(CheckerFunc{CheckerName: "state", Fn: func(ctx context.Context) error { return nil }})
	m.Register(CheckerFunc{CheckerName: "redis", Fn: func(ctx context.Context) error { return errors.New("down") }})

	resp := m.Evaluate(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusHealthy, resp.Checks["state"].Status)
	assert.Equal(t, "down", resp.Checks["redis"].Error)
}

func TestReadyHandlerReturns503WhenUnhealthy(t *testing.T) {
	m := NewManager("test")
	m.Register(CheckerFunc{CheckerName: "sql", Fn: func(ctx context.Context) error { return errors.New("no db") }})

	rec := httptest.NewRecorder()
	m.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessAlwaysHealthy(t *testing.T) {
	m := NewManager("test")
	m.Register(CheckerFunc{CheckerName: "sql", Fn: func(ctx context.Context) error { return errors.New("no db") }})

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
