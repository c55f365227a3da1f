package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_JSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("server listening", zap.Int("port", 8080))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"server listening"`)
	assert.Contains(t, string(data), `"port":8080`)
}

func TestNew_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	log, err := New(Config{Level: "warn", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("filtered out")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered out")
	assert.Contains(t, string(data), "kept")
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewDefault(t *testing.T) {
	require.NotNil(t, NewDefault())
}

func TestSingleLoggerAdapter_SharesOneLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	adapter := NewSingleLoggerAdapter(base)
	adapter.Search().Info("search event")
	adapter.Transfer().Info("transfer event")
	adapter.LogError(CategoryTransfer, "transfer broke")
	require.NoError(t, adapter.Sync())

	messages := make([]string, 0, logs.Len())
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"search event", "transfer event", "transfer broke"}, messages)
	assert.Same(t, base, adapter.GetSingleLogger())
}
