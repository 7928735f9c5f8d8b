package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "coffeebreak/pkg/logx"
)

func TestHandlerMetricsAndHealth(t *testing.T) {
	reg := NewRegistry()
	m := NewMetrics(reg)
	m.RecordCache(true)

	var healthy error
	srv := NewServer(ServerConfig{}, reg, func(ctx context.Context) error { return healthy }, logx.Nop())
	h := srv.Handler(ServerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coffeebreak_schedule_cache_requests_total{result="hit"} 1`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = errors.New("schedule plugin not registered")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerToken(t *testing.T) {
	srv := NewServer(ServerConfig{}, NewRegistry(), nil, logx.Nop())
	h := srv.Handler(ServerConfig{Token: "s3cret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz?token=nope", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPprofOptIn(t *testing.T) {
	srv := NewServer(ServerConfig{}, NewRegistry(), nil, logx.Nop())

	rec := httptest.NewRecorder()
	srv.Handler(ServerConfig{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler(ServerConfig{Pprof: true, PprofPrefix: "/_pprof"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	srv := NewServer(ServerConfig{}, NewRegistry(), nil, logx.Nop())
	ctx := context.Background()
	srv.Reconfigure(ctx, ServerConfig{Enabled: true, Addr: "127.0.0.1:0"})
	t.Cleanup(func() { srv.Stop(context.Background()) })

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))

	srv.Reconfigure(ctx, ServerConfig{Enabled: false})
	assert.Eventually(t, func() bool { return srv.Addr() == "" }, 2*time.Second, 10*time.Millisecond)
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, IsLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, IsLoopbackAddr("localhost:9464"))
	assert.True(t, IsLoopbackAddr("[::1]:9464"))
	assert.False(t, IsLoopbackAddr(":9464"))
	assert.False(t, IsLoopbackAddr("0.0.0.0:9464"))
	assert.False(t, IsLoopbackAddr("bogus"))
}
