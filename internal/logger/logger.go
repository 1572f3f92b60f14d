package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu  sync.RWMutex
	out zerolog.Logger
	lvl = LevelInfo
)

func init() {
	out = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetOutput переключает вывод. pretty=true: человекочитаемый формат для разработки.
func SetOutput(w io.Writer, pretty bool) {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	mu.Lock()
	out = zerolog.New(w).With().Timestamp().Logger()
	mu.Unlock()
}

func SetLevel(l Level) {
	mu.Lock()
	lvl = l
	mu.Unlock()
}

// ParseLevel понимает debug/info/warn/error, остальное: info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelDebug, nil, msg, fields)
}

func Info(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelInfo, nil, msg, fields)
}

func Warn(ctx context.Context, msg string, fields ...any) {
	write(ctx, LevelWarn, nil, msg, fields)
}

// Error пишет сообщение с ошибкой; err может быть nil.
func Error(ctx context.Context, err error, msg string, fields ...any) {
	write(ctx, LevelError, err, msg, fields)
}

func write(ctx context.Context, l Level, err error, msg string, fields []any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < lvl {
		return
	}

	var ev *zerolog.Event
	switch l {
	case LevelDebug:
		ev = out.Debug()
	case LevelInfo:
		ev = out.Info()
	case LevelWarn:
		ev = out.Warn()
	default:
		ev = out.Error()
	}

	if err != nil {
		ev = ev.Err(err)
	}
	if ctx != nil {
		if id := middleware.GetReqID(ctx); id != "" {
			ev = ev.Str("request_id", id)
		}
	}
	// пары ключ-значение; непарный хвост уходит под ключом "extra"
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			ev = ev.Interface("extra", fields[i])
			break
		}
		ev = ev.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	ev.Msg(msg)
}
