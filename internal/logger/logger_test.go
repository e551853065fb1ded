package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("filters below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(Config{Level: "warn"}, &buf)

		log.Info().Msg("hidden")
		assert.Zero(t, buf.Len())

		log.Warn().Str("component", "test").Msg("shown")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["message"])
		assert.Equal(t, "test", entry["component"])
		assert.Contains(t, entry, "time")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(Config{Level: "chatty"}, &buf)

		log.Debug().Msg("hidden")
		assert.Zero(t, buf.Len())
		log.Info().Msg("shown")
		assert.NotZero(t, buf.Len())
	})
}
