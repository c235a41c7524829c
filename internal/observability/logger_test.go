package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "pitch-test"})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.WithContext(ctx).WithOperation("pitch_deck").Info().
		Int("pages", 3).
		Err(errors.New("boom")).
		Msg("analysis finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pitch-test", entry["service"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "pitch_deck", entry["operation"])
	assert.Equal(t, float64(3), entry["pages"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "analysis finished", entry["message"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))

	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}
