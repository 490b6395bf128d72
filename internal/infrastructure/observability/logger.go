package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger configures the global zerolog logger. Local environments get a
// console writer; everything else logs JSON. level overrides the default of
// debug locally and info elsewhere.
func InitLogger(serviceName, env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	defaultLevel := zerolog.InfoLevel
	if env == "development" || env == "test" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		defaultLevel = zerolog.DebugLevel
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Str("env", env).
			Logger()
	}

	if parsed, err := zerolog.ParseLevel(level); err == nil && level != "" {
		defaultLevel = parsed
	}
	zerolog.SetGlobalLevel(defaultLevel)
}

// WithRequestLogger stores a request-scoped logger in the context
func WithRequestLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// LoggerFromContext returns the request-scoped logger, or the global one,
// annotated with the active trace and span ids
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	base := zerolog.Ctx(ctx)
	if base.GetLevel() == zerolog.Disabled {
		base = &log.Logger
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return base
	}

	logger := base.With().
		Str("trace_id", span.SpanContext().TraceID().String()).
		Str("span_id", span.SpanContext().SpanID().String()).
		Logger()
	return &logger
}
