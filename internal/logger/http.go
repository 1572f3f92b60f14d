package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware логирует каждый HTTP-запрос: 5xx: error, 4xx: warn, остальное: info.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", status,
			"latency", time.Since(start).String(),
			"ip", r.RemoteAddr,
		}

		ctx := r.Context()
		switch {
		case status >= 500:
			Error(ctx, nil, "request", fields...)
		case status >= 400:
			Warn(ctx, "request", fields...)
		default:
			Info(ctx, "request", fields...)
		}
	})
}
