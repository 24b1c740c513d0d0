package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/metrics"
	"github.com/clinical-scoring-engine/internal/registry"
	"github.com/clinical-scoring-engine/internal/service"
)

type staticConfig struct {
	cfg *domain.Config
}

func (s staticConfig) GetConfig() *domain.Config                 { return s.cfg }
func (s staticConfig) GetServerConfig() *domain.ServerConfig     { return &s.cfg.Server }
func (s staticConfig) GetDatabaseConfig() *domain.DatabaseConfig { return &s.cfg.Database }
func (s staticConfig) GetCacheConfig() *domain.CacheConfig       { return &s.cfg.Cache }
func (s staticConfig) Reload() error                             { return nil }
func (s staticConfig) Validate() error                           { return nil }
func (s staticConfig) IsProduction() bool                        { return false }
func (s staticConfig) IsDevelopment() bool                       { return true }

func testConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			WriteTimeout:   5 * time.Second,
			AllowedOrigins: []string{"*"},
			BatchLimit:     10,
		},
		Logging: domain.LoggingConfig{Level: "warn"},
		Metrics: domain.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	server  *Server
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, withStore bool, mutate ...func(*domain.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg, err := registry.NewDefault()
	require.NoError(t, err)

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	m := metrics.New(nil)
	opts := service.Options{Metrics: m, BatchLimit: cfg.Server.BatchLimit}
	if withStore {
		store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		opts.Store = store
	}

	svc := service.NewScoringService(reg, logger, opts)
	return &testEnv{
		server:  NewServer(staticConfig{cfg: cfg}, svc, logger, m),
		metrics: m,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(56), body["calculators"])
	assert.Equal(t, true, body["history_enabled"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[struct {
		Categories []domain.CategoryInfo `json:"categories"`
	}](t, w)
	assert.Len(t, cats.Categories, 10)

	w = env.do(t, http.MethodGet, "/api/v1/categories/nephrology/calculators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Calculators []domain.CalculatorInfo `json:"calculators"`
		Count       int                     `json:"count"`
	}](t, w)
	assert.Equal(t, len(list.Calculators), list.Count)
	assert.NotZero(t, list.Count)

	w = env.do(t, http.MethodGet, "/api/v1/categories/astrology/calculators", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrCategoryNotFound, decode[domain.APIError](t, w).Code)

	w = env.do(t, http.MethodGet, "/api/v1/calculators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(56), decode[map[string]any](t, w)["count"])

	w = env.do(t, http.MethodGet, "/api/v1/calculators/qsofa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[domain.CalculatorInfo](t, w)
	assert.Equal(t, "qsofa", info.ID)
	assert.Empty(t, info.Disclaimer)

	w = env.do(t, http.MethodGet, "/api/v1/calculators/ckdepi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info = decode[domain.CalculatorInfo](t, w)
	assert.Equal(t, "Aide au calcul. Interprétation clinique à valider. Utiliser unités correctes (mg/dL).", info.Disclaimer)

	w = env.do(t, http.MethodGet, "/api/v1/calculators/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrCalculatorNotFound, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestCompute(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/calculators/qsofa/compute", map[string]any{
		"inputs": map[string]any{"altered_mental": true, "sbp_low": true},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[service.ComputeResponse](t, w)
	v, ok := resp.Result.Value.Number()
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, domain.SeverityCritical, resp.Result.Severity)
	assert.False(t, resp.Persisted)
}

func TestComputeEmptyBodyUsesDefaults(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/calculators/qsofa/compute", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[service.ComputeResponse](t, w)
	assert.Equal(t, domain.SeverityLow, resp.Result.Severity)
}

func TestComputeErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown calculator", "/api/v1/calculators/nope/compute", map[string]any{}, http.StatusNotFound, domain.ErrCalculatorNotFound},
		{"malformed json", "/api/v1/calculators/qsofa/compute", `{"inputs":`, http.StatusBadRequest, domain.ErrInvalidInput},
		{"nested object input", "/api/v1/calculators/qsofa/compute", `{"inputs":{"sbp_low":{"a":1}}}`, http.StatusBadRequest, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode[domain.APIError](t, w).Code)
		})
	}
}

func TestComputePersistAndHistory(t *testing.T) {
	env := newTestEnv(t, true)

	for _, flags := range []map[string]any{
		{"altered_mental": true},
		{"altered_mental": true, "sbp_low": true, "rr_high": true},
	} {
		w := env.do(t, http.MethodPost, "/api/v1/calculators/qsofa/compute", map[string]any{
			"inputs":     flags,
			"subject_id": "patient-9",
			"author_id":  "dr-ng",
			"persist":    true,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		time.Sleep(2 * time.Millisecond)
	}

	w := env.do(t, http.MethodGet, "/api/v1/calculations?subject_id=patient-9&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[service.HistoryPage](t, w)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Records, 1)

	w = env.do(t, http.MethodGet, "/api/v1/calculations/"+page.Records[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[domain.CalculationRecord](t, w)
	assert.Equal(t, "dr-ng", rec.AuthorID)

	w = env.do(t, http.MethodGet, "/api/v1/calculations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrRecordNotFound, decode[domain.APIError](t, w).Code)

	w = env.do(t, http.MethodGet, "/api/v1/calculations/trend?calculator_id=qsofa&subject_id=patient-9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trend := decode[history.Trend](t, w)
	assert.Equal(t, history.DirectionUp, trend.Direction)
	assert.Equal(t, 2.0, trend.Delta)

	w = env.do(t, http.MethodGet, "/api/v1/calculations/trend", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/calculations?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryWithoutStore(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/calculations", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domain.ErrStorageUnavailable, decode[domain.APIError](t, w).Code)

	w = env.do(t, http.MethodPost, "/api/v1/calculators/qsofa/compute", map[string]any{"persist": true})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[service.ComputeResponse](t, w)
	assert.False(t, resp.Persisted)
	assert.NotEmpty(t, resp.Warning)
}

func TestComputeBatch(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/compute/batch", map[string]any{
		"requests": []map[string]any{
			{"calculator_id": "qsofa", "inputs": map[string]any{"rr_high": true}},
			{"calculator_id": "nope"},
			{"calculator_id": "bmi", "inputs": map[string]any{"weight": 70, "height": 175}},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Results   []batchResult `json:"results"`
		Succeeded int           `json:"succeeded"`
		Failed    int           `json:"failed"`
	}](t, w)
	require.Len(t, body.Results, 3)
	assert.Equal(t, 2, body.Succeeded)
	assert.Equal(t, 1, body.Failed)
	assert.Equal(t, "nope", body.Results[1].CalculatorID)
	require.NotNil(t, body.Results[1].Error)
	assert.Equal(t, domain.ErrCalculatorNotFound, body.Results[1].Error.Code)
	require.NotNil(t, body.Results[2].Response)
	assert.Equal(t, "22.9", body.Results[2].Response.Result.Value.String())
}

func TestComputeBatchTooLarge(t *testing.T) {
	env := newTestEnv(t, false, func(c *domain.Config) { c.Server.BatchLimit = 1 })

	w := env.do(t, http.MethodPost, "/api/v1/compute/batch", map[string]any{
		"requests": []map[string]any{{"calculator_id": "qsofa"}, {"calculator_id": "qsofa"}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrValidation, decode[domain.APIError](t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	env.do(t, http.MethodPost, "/api/v1/calculators/qsofa/compute", nil)

	w := env.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scoring_computations_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/calculators/:id/compute"`)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, false, func(c *domain.Config) {
		c.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = env.do(t, http.MethodGet, "/api/v1/categories", nil).Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLiveWebSocket(t *testing.T) {
	env := newTestEnv(t, false)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":            "f1",
		"calculator_id": "qsofa",
		"inputs":        map[string]any{"altered_mental": true},
	}))
	var first liveResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "f1", first.ID)
	assert.Equal(t, "qsofa", first.CalculatorID)
	require.NotNil(t, first.Result)
	assert.Equal(t, domain.SeverityHigh, first.Result.Severity)
	assert.Nil(t, first.Error)

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "f2", "calculator_id": "nope"}))
	var second liveResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Nil(t, second.Result)
	require.NotNil(t, second.Error)
	assert.Equal(t, domain.ErrCalculatorNotFound, second.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var third liveResponse
	require.NoError(t, conn.ReadJSON(&third))
	require.NotNil(t, third.Error)
	assert.Equal(t, domain.ErrInvalidInput, third.Error.Code)
}
