package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Search       SearchConfig       `mapstructure:"search"`
	Transfer     TransferConfig     `mapstructure:"transfer"`
	Conditions   ConditionsConfig   `mapstructure:"conditions"`
	Slskd        SlskdConfig        `mapstructure:"slskd"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SearchConfig bounds the search fan-out. Its concurrency budget is
// deliberately independent from the transfer budget; the network rate-limits
// searches and transfers separately.
type SearchConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	PerRequestTimeout time.Duration `mapstructure:"per_request_timeout"`
	RatePerMinute     int           `mapstructure:"rate_per_minute"`
}

// TransferConfig bounds the download workers
type TransferConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	DownloadDir   string        `mapstructure:"download_dir"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
}

// ConditionsConfig declares the required and preferred candidate filters,
// loaded once per orchestration run.
type ConditionsConfig struct {
	RequiredFormats    []string `mapstructure:"required_formats"`
	PreferredFormats   []string `mapstructure:"preferred_formats"`
	MinBitrateKbps     int      `mapstructure:"min_bitrate_kbps"`
	MaxBitrateKbps     int      `mapstructure:"max_bitrate_kbps"`
	MinSampleRateHz    int      `mapstructure:"min_sample_rate_hz"`
	MaxSampleRateHz    int      `mapstructure:"max_sample_rate_hz"`
	LengthToleranceSec int      `mapstructure:"length_tolerance_sec"`
	AllowedOwners      []string `mapstructure:"allowed_owners"`
	BlockedOwners      []string `mapstructure:"blocked_owners"`
	StrictPathMatch    bool     `mapstructure:"strict_path_match"`
}

// SlskdConfig points at the slskd daemon used as the search/transfer backend
type SlskdConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// HistoryConfig contains the finished-item archive configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains desktop notification configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // directory for categorized logs
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Search: SearchConfig{
			Concurrency:       4,
			PerRequestTimeout: 45 * time.Second,
			RatePerMinute:     30,
		},
		Transfer: TransferConfig{
			Concurrency:   2,
			MaxAttempts:   3,
			RetryDelay:    15 * time.Second,
			DownloadDir:   "$HOME/Music/trackhound",
			RatePerMinute: 60,
		},
		Conditions: ConditionsConfig{
			RequiredFormats:    []string{"mp3", "flac"},
			PreferredFormats:   []string{"flac"},
			MinBitrateKbps:     200,
			MaxBitrateKbps:     2500,
			MinSampleRateHz:    44100,
			MaxSampleRateHz:    192000,
			LengthToleranceSec: 3,
		},
		Slskd: SlskdConfig{
			BaseURL:      "http://localhost:5030",
			PollInterval: 500 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/Music/trackhound/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/Music/trackhound/logs",
		},
	}
}
