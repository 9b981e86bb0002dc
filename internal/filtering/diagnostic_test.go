package filtering

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogReporter_Report(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reporter := NewSlogReporter(logger)

	reporter.Report(context.Background(), Diagnostic{
		Severity: SeverityWarning,
		Message:  "bad service",
		Service:  `App\Svc`,
	})
	reporter.Report(context.Background(), Diagnostic{
		Severity: SeverityInfo,
		Message:  "skipped provider",
		Service:  `\App\Svc`,
		Provider: `App\Impl`,
	})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="bad service"`)
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "provider=")
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	counts := CountBySeverity([]Diagnostic{
		{Severity: SeverityWarning},
		{Severity: SeverityInfo},
		{Severity: SeverityInfo},
	})
	assert.Equal(t, 1, counts[SeverityWarning])
	assert.Equal(t, 2, counts[SeverityInfo])
	assert.Empty(t, CountBySeverity(nil))
}
