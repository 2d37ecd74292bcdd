package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	log, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Named("test").Info("hello", String("k", "v"), Int("n", 1))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metar.log")

	log, err := New(Config{Level: "debug", Format: "json", FilePath: path})
	require.NoError(t, err)

	log.Named("weather-client").Warn("fetch failed", Error(errors.New("boom")), Bool("retry", false))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fetch failed")
	assert.Contains(t, string(data), "weather-client")
	assert.Contains(t, string(data), "boom")
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.With(String("airport", "KJFK")).Error("ignored")
	assert.NotNil(t, log.Zap())
}
