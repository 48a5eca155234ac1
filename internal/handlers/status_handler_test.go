package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func doGet(t *testing.T, setup func(r *gin.Engine), path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setup(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetWishedUsers(t *testing.T) {
	h := testHandlers(t, nil)
	require.NoError(t, h.wishes.RecordWish("alice", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, h.wishes.RecordWish("bob", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))

	w := doGet(t, func(r *gin.Engine) { r.GET("/api/wished", h.GetWishedUsers) }, "/api/wished?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total  int64             `json:"total"`
		Recent []json.RawMessage `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Recent, 1)
}

func TestGetSubreddits(t *testing.T) {
	h := testHandlers(t, nil)
	require.NoError(t, h.subs.Ensure([]string{"cats", "aww"}))

	w := doGet(t, func(r *gin.Engine) { r.GET("/api/subreddits", h.GetSubreddits) }, "/api/subreddits")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
}

func TestGetMetrics_SeriesList(t *testing.T) {
	h := testHandlers(t, nil)
	h.metrics.Record("scan_duration_ms", 42, 0)

	w := doGet(t, func(r *gin.Engine) { r.GET("/api/metrics", h.GetMetrics) }, "/api/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Series []string `json:"series"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Series, "scan_duration_ms")
}

func TestGetMetrics_WindowAndAverage(t *testing.T) {
	h := testHandlers(t, nil)
	h.metrics.Record("wishes_sent", 1, 0)
	h.metrics.Record("wishes_sent", 3, 0)

	w := doGet(t, func(r *gin.Engine) { r.GET("/api/metrics", h.GetMetrics) }, "/api/metrics?name=wishes_sent&since=10m")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Name    string            `json:"name"`
		Samples []json.RawMessage `json:"samples"`
		Average float64           `json:"average"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "wishes_sent", resp.Name)
	require.Len(t, resp.Samples, 2)
	require.InDelta(t, 2.0, resp.Average, 1e-9)
}

func TestGetMetrics_BadSince(t *testing.T) {
	h := testHandlers(t, nil)
	w := doGet(t, func(r *gin.Engine) { r.GET("/api/metrics", h.GetMetrics) }, "/api/metrics?name=x&since=soon")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerScan(t *testing.T) {
	trigger := make(chan string, 1)
	h := testHandlers(t, trigger)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/scan/:subreddit", h.TriggerScan)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/cats", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "cats", <-trigger)

	// Fill the queue; the second request must be rejected, not block.
	trigger <- "aww"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/cats", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTriggerScan_Disabled(t *testing.T) {
	h := testHandlers(t, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/scan/:subreddit", h.TriggerScan)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/cats", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
