// Package observability wires the service's ambient logging, tracing, and
// metrics stack: zap for structured logs, OpenTelemetry/OTLP for traces
// (grounded on the teacher's internal/infrastructure/tracing/tracing.go),
// and a Prometheus registry (grounded on
// internal/infrastructure/observability/metrics.go).
package observability

import (
	"github.com/agentmemory/memoryd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.Logger whose level and encoding follow
// cfg.Logging, matching the teacher's json-by-default, console-in-dev split.
func NewLogger(cfg config.Logging) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
