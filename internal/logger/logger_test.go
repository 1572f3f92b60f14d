package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, false)
	t.Cleanup(func() {
		SetOutput(os.Stderr, false)
		SetLevel(LevelInfo)
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry), buf.String())
	return entry
}

func TestLogger(t *testing.T) {
	buf := capture(t)
	ctx := context.Background()

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info(ctx, "Тестовое сообщение")
		e := lastEntry(t, buf)
		assert.Equal(t, "info", e["level"])
		assert.Equal(t, "Тестовое сообщение", e["message"])
	})

	t.Run("Error with error", func(t *testing.T) {
		buf.Reset()
		Error(ctx, errors.New("тестовая ошибка"), "Дополнительное сообщение")
		e := lastEntry(t, buf)
		assert.Equal(t, "error", e["level"])
		assert.Equal(t, "тестовая ошибка", e["error"])
		assert.Equal(t, "Дополнительное сообщение", e["message"])
	})

	t.Run("Error without error", func(t *testing.T) {
		buf.Reset()
		Error(ctx, nil, "Сообщение без ошибки")
		e := lastEntry(t, buf)
		assert.NotContains(t, e, "error")
	})

	t.Run("Debug with level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelDebug)
		defer SetLevel(LevelInfo)

		Debug(ctx, "Тестовое debug-сообщение")
		assert.Equal(t, "debug", lastEntry(t, buf)["level"])
	})

	t.Run("Debug without level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelInfo)

		Debug(ctx, "Это не должно логироваться")
		assert.Empty(t, buf.String())
	})
}

func TestLoggerWithFields(t *testing.T) {
	buf := capture(t)

	Info(context.Background(), "Сообщение с полями", "key1", "value1", "key2", 42, "odd")
	e := lastEntry(t, buf)
	assert.Equal(t, "value1", e["key1"])
	assert.Equal(t, float64(42), e["key2"])
	assert.Equal(t, "odd", e["extra"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestMiddleware(t *testing.T) {
	buf := capture(t)

	h := middleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/x?y=1", nil))

	e := lastEntry(t, buf)
	assert.Equal(t, "warn", e["level"])
	assert.Equal(t, "/api/tasks/x?y=1", e["path"])
	assert.Equal(t, float64(404), e["status"])
	assert.NotEmpty(t, e["request_id"])
}
