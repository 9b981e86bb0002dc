package filtering

import (
	"context"
	"log/slog"
)

// Severity classifies a diagnostic
type Severity string

const (
	// SeverityWarning marks malformed declarations
	SeverityWarning Severity = "warning"

	// SeverityInfo marks well-formed declarations skipped in this environment
	SeverityInfo Severity = "info"
)

// Diagnostic describes one pruning decision of the availability filter
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Service is the service the decision applies to
	Service string `json:"service"`

	// Provider is empty for service-level decisions
	Provider string `json:"provider,omitempty"`

	// Packages are the package identities credited for the declaration
	Packages []string `json:"packages,omitempty"`
}

// Reporter receives diagnostics as they are produced
type Reporter interface {
	Report(ctx context.Context, d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(ctx context.Context, d Diagnostic)

// Report calls f(ctx, d)
func (f ReporterFunc) Report(ctx context.Context, d Diagnostic) {
	f(ctx, d)
}

// slogReporter logs warnings at WARN and everything else at INFO
type slogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter logging to logger, or to the default logger when nil
func NewSlogReporter(logger *slog.Logger) Reporter {
	return &slogReporter{logger: logger}
}

func (r *slogReporter) Report(ctx context.Context, d Diagnostic) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"service", d.Service}
	if d.Provider != "" {
		attrs = append(attrs, "provider", d.Provider)
	}

	level := slog.LevelInfo
	if d.Severity == SeverityWarning {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, d.Message, attrs...)
}

// CountBySeverity returns the number of diagnostics per severity
func CountBySeverity(diagnostics []Diagnostic) map[Severity]int {
	counts := map[Severity]int{}
	for _, d := range diagnostics {
		counts[d.Severity]++
	}
	return counts
}
