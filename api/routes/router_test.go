package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hwinventory-backend/internal/backup"
	"github.com/angelmondragon/hwinventory-backend/internal/engine"
	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Inventory.DefaultActorID = 1
	cfg.Redis.IdempotencyTTL = time.Hour
	cfg.DB.Driver = config.DriverSQLite
	return cfg
}

func newTestServer(t *testing.T, pinger stubPinger) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	return newTestServerWith(t, testConfig(), pinger)
}

func newTestServerWith(t *testing.T, cfg *config.Config, pinger stubPinger) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	client, _ := dbtest.Client(t)
	reg := prometheus.NewRegistry()
	eng, err := engine.New(client, nil, metrics.NewInventoryMetrics(reg))
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(cfg, nil, pinger, nil, eng, metrics.NewHTTPMetrics(reg), reg))
	t.Cleanup(srv.Close)
	return srv, reg
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, headers ...string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	resp, _ := do(t, srv, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", resp.Header.Get("X-HWInv-Env"))

	resp, _ = do(t, srv, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{err: errors.New("connection refused")})

	resp, env := do(t, srv, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DEPENDENCY_ERROR", env.Error.Code)
	assert.Equal(t, "connection refused", env.Error.Details["sqlite"])
	assert.NotContains(t, env.Error.Details, "postgres")
}

func TestPartAndOrderLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	resp, env := do(t, srv, http.MethodPost, "/api/v1/parts",
		`{"name":"Samsung 970 EVO 1TB","brand":"Samsung","category":"Storage","price":"6000","quantity":3,"alert_threshold":2}`,
		"X-User-Id", "7")
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var part struct {
		CategoryID string `json:"category_id"`
		Quantity   int    `json:"quantity"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &part))
	assert.Equal(t, "SSD001", part.CategoryID)
	assert.Equal(t, "In Stock", part.Status)

	resp, env = do(t, srv, http.MethodPost, "/api/v1/orders", `{"category_id":"SSD001","quantity":2,"date":"2025-07-28"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "ORD001", order.OrderID)
	assert.Equal(t, "Pending", order.Status)

	_, env = do(t, srv, http.MethodGet, "/api/v1/parts/SSD001", "")
	require.NoError(t, json.Unmarshal(env.Data, &part))
	assert.Equal(t, 1, part.Quantity)
	assert.Equal(t, "Low Stock", part.Status)

	resp, env = do(t, srv, http.MethodPost, "/api/v1/orders", `{"category_id":"SSD001","quantity":5}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)

	resp, env = do(t, srv, http.MethodPut, "/api/v1/orders/ORD001", `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)

	_, env = do(t, srv, http.MethodGet, "/api/v1/parts/SSD001", "")
	require.NoError(t, json.Unmarshal(env.Data, &part))
	assert.Equal(t, 3, part.Quantity)

	resp, env = do(t, srv, http.MethodPut, "/api/v1/orders/ORD001", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "STATE_CONFLICT", env.Error.Code)

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/parts/SSD001", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "part with orders must not be deleted")

	_, env = do(t, srv, http.MethodGet, "/api/v1/activity?category_id=SSD001", "")
	var entries []struct {
		ActionType string `json:"action_type"`
		UserID     int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "Addition", entries[len(entries)-1].ActionType)
	assert.Equal(t, int64(7), entries[len(entries)-1].UserID)
}

func TestNextIDs(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	_, env := do(t, srv, http.MethodGet, "/api/v1/parts/next-id?category=Graphic%20Card%20(GPU)", "")
	assert.JSONEq(t, `{"category_id":"GPU001"}`, string(env.Data))

	resp, env := do(t, srv, http.MethodGet, "/api/v1/parts/next-id?category=Toaster", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	_, env = do(t, srv, http.MethodGet, "/api/v1/orders/next-id", "")
	assert.JSONEq(t, `{"order_id":"ORD001"}`, string(env.Data))
}

func TestReportsAndExport(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	resp, env := do(t, srv, http.MethodPost, "/api/v1/parts",
		`{"name":"NVIDIA RTX 3060","brand":"NVIDIA","category":"Graphic Card (GPU)","price":"28000","quantity":0,"alert_threshold":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)

	_, env = do(t, srv, http.MethodGet, "/api/v1/reports/summary", "")
	var summary struct {
		TotalParts int `json:"total_parts"`
		OutOfStock int `json:"out_of_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.TotalParts)
	assert.Equal(t, 1, summary.OutOfStock)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/reports/export?type=stock-alert", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	resp, env = do(t, srv, http.MethodGet, "/api/v1/reports/export?type=pdf", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestBackupDownloadAndRestore(t *testing.T) {
	source, _ := newTestServer(t, stubPinger{})
	resp, env := do(t, source, http.MethodPost, "/api/v1/parts",
		`{"name":"Samsung 970 EVO 1TB","brand":"Samsung","category":"Storage","price":"6000","quantity":3,"alert_threshold":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)

	download, err := source.Client().Get(source.URL + "/api/v1/reports/backup")
	require.NoError(t, err)
	defer download.Body.Close()
	require.Equal(t, http.StatusOK, download.StatusCode)
	assert.Equal(t, "application/json", download.Header.Get("Content-Type"))
	assert.Contains(t, download.Header.Get("Content-Disposition"), "inventory_")
	raw, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	snap, err := backup.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, snap.Parts, 1)
	assert.Equal(t, "SSD001", snap.Parts[0].CategoryID)

	resp, _ = do(t, source, http.MethodPost, "/api/v1/reports/backup", string(raw))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "restore stays unrouted unless enabled")

	cfg := testConfig()
	cfg.FeatureFlags.AllowRestore = true
	target, _ := newTestServerWith(t, cfg, stubPinger{})

	resp, env = do(t, target, http.MethodPost, "/api/v1/reports/backup", `{"version":9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = do(t, target, http.MethodPost, "/api/v1/reports/backup", string(raw))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)
	assert.JSONEq(t, `{"parts":1,"orders":0,"activity_logs":1}`, string(env.Data))

	resp, env = do(t, target, http.MethodGet, "/api/v1/parts/SSD001", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)
}

func TestInvalidActorHeaderRejected(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	resp, env := do(t, srv, http.MethodGet, "/api/v1/parts", "", "X-User-Id", "nobody")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestMetricsEndpointExposesHTTPSeries(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})

	do(t, srv, http.MethodGet, "/api/v1/parts", "")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/api/v1/parts`)
}
