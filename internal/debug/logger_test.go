package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSON(t *testing.T) {
	t.Cleanup(func() { Init(false) })

	var buf bytes.Buffer
	require.NoError(t, Configure("debug", "json", &buf))
	assert.True(t, Enabled())

	With("connection", "primary").Debug("connection established", "role", "write")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "connection established", record["msg"])
	assert.Equal(t, "primary", record["connection"])
	assert.Equal(t, "write", record["role"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	t.Cleanup(func() { Init(false) })

	var buf bytes.Buffer
	require.NoError(t, Configure("warn", "text", &buf))
	assert.False(t, Enabled())

	Logger().Info("dropped")
	assert.Empty(t, buf.String())

	Logger().Warn("closing pool failed")
	assert.Contains(t, buf.String(), "closing pool failed")
}

func TestConfigure_Errors(t *testing.T) {
	assert.Error(t, Configure("loud", "text", nil))
	assert.Error(t, Configure("info", "xml", nil))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { Init(false) })

	Init(true)
	assert.True(t, Enabled())
	assert.NotNil(t, Logger())

	Init(false)
	assert.False(t, Enabled())
}
