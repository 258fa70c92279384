package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf).With().Str("command", "plan").Logger())

	loggerFrom(ctx).Info().Msg("resolved")
	assert.Contains(t, buf.String(), `"command":"plan"`)
	assert.Contains(t, buf.String(), `"message":"resolved"`)
}

func TestLoggerFrom_Fallback(t *testing.T) {
	assert.Same(t, &log.Logger, loggerFrom(context.Background()))

	ctx := WithLogger(context.Background(), zerolog.Nop())
	assert.Same(t, &log.Logger, loggerFrom(ctx))
}
