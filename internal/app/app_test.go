package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"acdispatch/internal/config"
	"acdispatch/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Database.Path = "file:apptest?mode=memory&cache=shared"
	cfg.Monitor.Interval = time.Hour
	// 中风速每 tick 0.5 度
	cfg.Scheduler.Factor = 60
	return cfg
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) (int, handlers.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp handlers.Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestAppEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	cfg := testConfig()
	fc := testingclock.NewFakeClock(time.Now())

	a := NewApp(cfg, WithClock(fc))
	require.NoError(t, a.Initialize(ctx))
	require.NoError(t, a.Start(ctx))
	h := a.Handler()

	code, _ := call(t, h, http.MethodPost, "/panel/poweron", map[string]int{"roomNumber": 1})
	assert.Equal(t, http.StatusBadRequest, code, "rejected while the system is closed")

	code, _ = call(t, h, http.MethodPost, "/admin/open", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodPost, "/panel/poweron", map[string]int{"roomNumber": 1})
	require.Equal(t, http.StatusOK, code)

	require.Eventually(t, func() bool {
		fc.Step(cfg.Scheduler.TickInterval)
		st, _ := a.scheduler.StatusOf(1)
		return st.Status == "working" && st.CurrentTemp <= 30
	}, 2*time.Second, 5*time.Millisecond)

	code, resp := call(t, h, http.MethodGet, "/admin/queues", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{1.0}, resp.Data.(map[string]interface{})["serviceQueue"])

	code, _ = call(t, h, http.MethodPost, "/panel/poweroff", map[string]int{"roomNumber": 1})
	require.Equal(t, http.StatusOK, code)

	// 关机时产生的区间由写回协程异步落库
	require.Eventually(t, func() bool {
		fc.Step(cfg.Scheduler.TickInterval)
		_, resp := call(t, h, http.MethodGet, "/billing/1/total", nil)
		data, ok := resp.Data.(map[string]interface{})
		return ok && data["total"].(float64) > 0
	}, 2*time.Second, 5*time.Millisecond)

	code, resp = call(t, h, http.MethodGet, "/billing/1/details?merge=true", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Data)

	code, _ = call(t, h, http.MethodPost, "/billing/1/checkout", nil)
	require.Equal(t, http.StatusOK, code)
	_, resp = call(t, h, http.MethodGet, "/billing/1/total", nil)
	assert.Equal(t, 0.0, resp.Data.(map[string]interface{})["total"])

	a.eventBus.Wait()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "acd_segments_persisted_total 1")

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx))
}
