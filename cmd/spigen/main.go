// Package main is the entry point for the service provider registry generator.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/spigen/cmd/spigen/app"
	"github.com/stacklok/spigen/internal/config"
)

// getLogLevel parses the SPIGEN_LOG_LEVEL environment variable and returns the corresponding slog.Level.
// Falls back to LOG_LEVEL for backward compatibility.
// Defaults to slog.LevelInfo if neither is set or if the value is invalid.
func getLogLevel(v *viper.Viper) slog.Level {
	levelStr := v.GetString("LOG_LEVEL")

	// Fall back to LOG_LEVEL without prefix
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// newBaseHandler returns a text handler for terminals, or JSON when SPIGEN_LOG_FORMAT=json
func newBaseHandler(v *viper.Viper) slog.Handler {
	opts := &slog.HandlerOptions{Level: getLogLevel(v)}
	if strings.EqualFold(v.GetString("LOG_FORMAT"), "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// traceHandler wraps an slog.Handler to automatically inject OpenTelemetry
// trace_id and span_id into every log record, enabling log-trace correlation.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func main() {
	// Application-level settings come from SPIGEN_* environment variables
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Logs go to stderr to keep stdout clean for commands that output data (e.g., show --format json).
	handler := &traceHandler{Handler: newBaseHandler(v)}
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(app.ExitCode(err))
	}
}
