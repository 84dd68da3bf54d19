package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/server"
)

type stubBackend struct {
	text string
	err  error
}

func (s stubBackend) Name() string  { return "stub" }
func (s stubBackend) Model() string { return "stub-1" }

func (s stubBackend) Complete(context.Context, string) (string, error) {
	return s.text, s.err
}

var now = time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

func newServer(t *testing.T, backend advisor.Backend) http.Handler {
	t.Helper()
	store, err := history.Open(history.BackendFile, filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts := []engine.Option{engine.WithStore(store), engine.WithClock(func() time.Time { return now })}
	if backend != nil {
		opts = append(opts, engine.WithAdvisor(advisor.NewGenerator(backend)))
	}
	eng := engine.New(nil, opts...)
	return server.New(eng, server.Options{Version: "test", Logger: zerolog.Nop()}).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

const commuteBody = `{"input":{"transport_mode":"bus","distance_km":10,"diet_type":"vegetarian"}}`

func TestHealth(t *testing.T) {
	h := newServer(t, nil)
	rec, payload := do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "test", payload["version"])
	assert.Equal(t, false, payload["advisor"])
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestFactors(t *testing.T) {
	h := newServer(t, nil)

	rec, payload := do(t, h, http.MethodGet, "/api/v1/factors?category=diet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	factors, ok := payload["factors"].([]any)
	require.True(t, ok)
	assert.Len(t, factors, 6)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/factors?category=shoes", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBenchmarks(t *testing.T) {
	h := newServer(t, nil)
	rec, payload := do(t, h, http.MethodGet, "/api/v1/benchmarks?daily=12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := payload["comparison"].(map[string]any)
	assert.InDelta(t, 4.38, cmp["annual_tonnes"], 1e-9)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/benchmarks?daily=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculate(t *testing.T) {
	h := newServer(t, nil)

	t.Run("without save", func(t *testing.T) {
		rec, payload := do(t, h, http.MethodPost, "/api/v1/footprints", commuteBody)
		require.Equal(t, http.StatusOK, rec.Code)
		result := payload["result"].(map[string]any)
		assert.InDelta(t, 3.55, result["total"], 1e-9)
		assert.NotContains(t, payload, "record")
	})

	t.Run("with save", func(t *testing.T) {
		rec, payload := do(t, h, http.MethodPost, "/api/v1/footprints?save=true", commuteBody)
		require.Equal(t, http.StatusCreated, rec.Code)
		record := payload["record"].(map[string]any)
		assert.NotEmpty(t, record["id"])

		rec, payload = do(t, h, http.MethodGet, "/api/v1/history/latest?n=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, payload["records"], 1)
	})

	t.Run("monthly consumption is amortized", func(t *testing.T) {
		rec, payload := do(t, h, http.MethodPost, "/api/v1/footprints",
			`{"input":{"consumption":[{"key":"new_clothes_monthly","quantity":1}]}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		result := payload["result"].(map[string]any)
		assert.InDelta(t, 8.0/30, result["total"], 1e-9)
	})

	t.Run("negative input", func(t *testing.T) {
		rec, payload := do(t, h, http.MethodPost, "/api/v1/footprints",
			`{"input":{"transport_mode":"bus","distance_km":-3}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Calculation failed", payload["error"])
	})

	t.Run("unknown key", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodPost, "/api/v1/footprints",
			`{"input":{"transport_mode":"hovercraft","distance_km":3}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodPost, "/api/v1/footprints", `{"inputs":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHistoryAndTrend(t *testing.T) {
	h := newServer(t, nil)

	rec, payload := do(t, h, http.MethodGet, "/api/v1/trend?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := payload["summary"].(map[string]any)
	assert.Equal(t, true, summary["no_data"])
	assert.Nil(t, summary["average_total"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/footprints?save=1", commuteBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, payload = do(t, h, http.MethodGet, "/api/v1/history?from=2026-06-01&to=2026-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, payload["count"])

	rec, payload = do(t, h, http.MethodGet, "/api/v1/history?to=2026-05-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, payload["count"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/history?from=2026-06-03&to=2026-06-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/history?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload = do(t, h, http.MethodGet, "/api/v1/trend?days=7&rolling=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary = payload["summary"].(map[string]any)
	assert.InDelta(t, 3.55, summary["average_total"], 1e-9)
	assert.Len(t, payload["rolling"], 1)
}

func TestGoal(t *testing.T) {
	h := newServer(t, nil)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/goal", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, h, http.MethodPost, "/api/v1/footprints?save=true", commuteBody)

	rec, payload := do(t, h, http.MethodGet, "/api/v1/goal?reduction=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assessment := payload["assessment"].(map[string]any)
	assert.InDelta(t, 1.775, assessment["target_daily_kg"], 1e-9)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/goal?reduction=150", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClimate(t *testing.T) {
	h := newServer(t, nil)
	rec, payload := do(t, h, http.MethodGet, "/api/v1/climate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cached", payload["grid_source"])
}

func TestAdvice(t *testing.T) {
	body := `{"mode":"quick-tips","input":{"transport_mode":"bus","distance_km":10,"diet_type":"vegetarian"}}`

	t.Run("success", func(t *testing.T) {
		h := newServer(t, stubBackend{text: "Cycle twice a week."})
		rec, payload := do(t, h, http.MethodPost, "/api/v1/advice", body)
		require.Equal(t, http.StatusOK, rec.Code)
		advice := payload["advice"].(map[string]any)
		assert.Equal(t, "Cycle twice a week.", advice["text"])
		assert.Equal(t, "quick_tips", advice["mode"])
	})

	t.Run("unavailable keeps the footprint", func(t *testing.T) {
		h := newServer(t, stubBackend{err: errors.New("dial tcp: connection refused")})
		rec, payload := do(t, h, http.MethodPost, "/api/v1/advice", body)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		fp := payload["footprint"].(map[string]any)
		assert.InDelta(t, 3.55, fp["total"], 1e-9)
	})

	t.Run("unknown mode", func(t *testing.T) {
		h := newServer(t, stubBackend{text: "x"})
		rec, _ := do(t, h, http.MethodPost, "/api/v1/advice", `{"mode":"poem"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no history", func(t *testing.T) {
		h := newServer(t, stubBackend{text: "x"})
		rec, _ := do(t, h, http.MethodPost, "/api/v1/advice", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("saved insight is listed", func(t *testing.T) {
		h := newServer(t, stubBackend{text: "Insulate the loft."})
		do(t, h, http.MethodPost, "/api/v1/footprints?save=true", commuteBody)
		rec, _ := do(t, h, http.MethodPost, "/api/v1/advice", `{"save_insight":true}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, payload := do(t, h, http.MethodGet, "/api/v1/insights", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, payload["insights"], 1)
	})
}

func TestCORS(t *testing.T) {
	h := newServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/factors", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	eng := engine.New(nil)
	srv := server.New(eng, server.Options{Addr: "127.0.0.1:0", Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
