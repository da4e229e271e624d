// Package logging configures the process-wide structured logger and the HTTP
// request logger built on it.
package logging

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// Setup builds a leveled logger writing to w and installs it as the package
// default. Unknown levels fall back to info.
func Setup(w io.Writer, level, prefix string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		ReportCaller:    true,
		TimeFormat:      time.RFC3339,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
		logger.Warn("unknown log level, using info", "level", level)
	}
	logger.SetLevel(lvl)
	log.SetDefault(logger)
	return logger
}

// RequestLogger returns chi middleware that logs one line per request.
func RequestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&requestFormatter{logger: logger})
}

type requestFormatter struct {
	logger *log.Logger
}

func (f *requestFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestEntry{
		logger: f.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		),
	}
}

type requestEntry struct {
	logger *log.Logger
}

func (e *requestEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	kv := []interface{}{"status", status, "bytes", bytes, "elapsed", elapsed}
	switch {
	case status >= http.StatusInternalServerError:
		e.logger.Error("request", kv...)
	case status >= http.StatusBadRequest:
		e.logger.Warn("request", kv...)
	default:
		e.logger.Info("request", kv...)
	}
}

func (e *requestEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic", "value", v, "stack", string(stack))
}
