package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromContextReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := IntoContext(context.Background(), logger)
	FromContext(ctx).Info().Str("component", "test").Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component")
}

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	logger.Info().Msg("dropped")

	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	assert.Equal(t, zerolog.Disabled, FromContext(nil).GetLevel())
}
