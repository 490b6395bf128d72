package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext_UsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	scoped := zerolog.New(&buf).With().Str("request_id", "req-42").Logger()

	ctx := WithRequestLogger(context.Background(), scoped)
	LoggerFromContext(ctx).Info().Msg("booking accepted")

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), "booking accepted")
}

func TestLoggerFromContext_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	logger := LoggerFromContext(context.Background())
	require.NotNil(t, logger)
	logger.Warn().Msg("cache unavailable")

	assert.Contains(t, buf.String(), "cache unavailable")
}
