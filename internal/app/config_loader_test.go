package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Search.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Search.PerRequestTimeout)
	assert.Equal(t, 2, cfg.Transfer.Concurrency)
	assert.Equal(t, 3, cfg.Transfer.MaxAttempts)
	assert.Equal(t, []string{"mp3", "flac"}, cfg.Conditions.RequiredFormats)
	assert.Equal(t, "http://localhost:5030", cfg.Slskd.BaseURL)
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
server:
  port: 9090
search:
  concurrency: 8
transfer:
  download_dir: /music/incoming
conditions:
  required_formats: [flac]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Search.Concurrency)
	assert.Equal(t, "/music/incoming", cfg.Transfer.DownloadDir)
	assert.Equal(t, []string{"flac"}, cfg.Conditions.RequiredFormats)

	// Unset values keep their defaults.
	assert.Equal(t, 3, cfg.Transfer.MaxAttempts)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"zero search concurrency", "search:\n  concurrency: 0\n"},
		{"zero transfer concurrency", "transfer:\n  concurrency: 0\n"},
		{"inverted bitrate bounds", "conditions:\n  min_bitrate_kbps: 900\n  max_bitrate_kbps: 300\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Music"), expandPath("~/Music"))
	assert.Equal(t, filepath.Join(home, "Music"), expandPath(filepath.Join("$HOME", "Music")))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Server.Port = 9999

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Server.Port)
}
