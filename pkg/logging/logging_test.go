package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" Warning ")
	assert.True(t, ok)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, zerolog.InfoLevel, lvl)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "euc-service", "warn", "json")

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Str("component", "session").Msg("shown")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "euc-service", entry["app"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}
