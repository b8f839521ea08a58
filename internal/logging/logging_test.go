package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNew_QuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Quiet: true, Console: &buf})

	log.Info().Msg("hidden")
	log.Error().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Console: &buf})

	log.Info().Msg("info line")
	log.Warn().Str("backend", "ncbi").Msg("warn line")

	out := buf.String()
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "backend=ncbi")
}

func TestNew_FileReceivesJSON(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "dbbuddy.log")
	log := New(Options{Level: "info", File: path, Console: &buf})

	log.Info().Str("session_id", "abc").Msg("retrieved")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON line, got %q", line)
	assert.Contains(t, line, `"session_id":"abc"`)
	assert.Contains(t, buf.String(), "retrieved")
}
