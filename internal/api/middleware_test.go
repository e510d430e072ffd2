package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/ZuzannaKurillova/trAIvel/internal/api"
)

// TestRequestLogger_logsRequestFields verifies that one structured line is
// written per request with the request ID chi put in the context.
func TestRequestLogger_logsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := api.RequestLogger(logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/explore", nil)
	ctx := context.WithValue(req.Context(), chimiddleware.RequestIDKey, "test-req-id")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	require.Equal(t, "POST", logEntry["method"])
	require.Equal(t, "/api/explore", logEntry["path"])
	require.EqualValues(t, http.StatusAccepted, logEntry["status"])
	require.Equal(t, "test-req-id", logEntry["request_id"])
	require.NotNil(t, logEntry["duration_ms"])
}

// TestSession_mintsStableID verifies that a minted id is both stored in the
// context and sent back as a cookie the browser will return.
func TestSession_mintsStableID(t *testing.T) {
	var seen string
	h := api.Session(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.SessionFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, api.SessionCookie, cookies[0].Name)
	require.Equal(t, seen, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, 3600, cookies[0].MaxAge)

	second := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	second.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)

	require.Equal(t, cookies[0].Value, seen)
	require.Empty(t, rec.Result().Cookies())
}
