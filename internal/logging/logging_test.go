package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitLoggerJSON verifies level filtering and JSON output.
func TestInitLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, initLogger(&buf, "warn", false))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("hidden")
	log.Warn().Str("event", "module_rejected").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "module_rejected", entry["event"])
	assert.Equal(t, "shown", entry["message"])
}

// TestInitLoggerBadLevel verifies unknown level names are rejected.
func TestInitLoggerBadLevel(t *testing.T) {
	require.Error(t, initLogger(&bytes.Buffer{}, "loud", true))
}
