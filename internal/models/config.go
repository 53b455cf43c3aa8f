package models

import "strings"

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Primary  PrimaryConfig  `json:"primary"`
	Fallback FallbackConfig `json:"fallback"`
	Redis    RedisConfig    `json:"redis"`
	Chat     ChatConfig     `json:"chat"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"read_timeout_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
	IdleTimeoutSec  int `json:"idle_timeout_sec"`
}

// PrimaryConfig describes the primary structured store. Whether the primary
// is usable is re-derived from this struct on every store call, so a DSN that
// appears (or disappears) at runtime takes effect without a restart.
type PrimaryConfig struct {
	Driver string `json:"driver"` // "postgres" or "sqlite3"
	DSN    string `json:"dsn"`
}

// placeholderMarkers flag DSNs copied from a config template and never filled
// in. A DSN containing one of these is treated exactly like an absent DSN.
var placeholderMarkers = []string{
	"your-", "your_", "changeme", "change-me", "placeholder", "example.com", "<", "xxxx",
}

// IsConfigured reports whether the primary store has real connection
// parameters. Callers re-evaluate this on every store call rather than caching
// the result, so outage or recovery takes effect without a restart.
func (p PrimaryConfig) IsConfigured() bool {
	dsn := strings.ToLower(strings.TrimSpace(p.DSN))
	if dsn == "" || p.Driver == "" {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(dsn, marker) {
			return false
		}
	}
	return true
}

// FallbackConfig describes the local file-backed mirror
type FallbackConfig struct {
	Dir string `json:"dir"`
}

// RedisConfig holds the optional unread-count cache settings. An empty Addr
// disables the cache entirely.
type RedisConfig struct {
	Addr   string `json:"addr"`
	TTLSec int    `json:"ttl_sec"`
}

// ChatConfig holds chat behaviour settings
type ChatConfig struct {
	PollIntervalSec int    `json:"poll_interval_sec"`
	AgentName       string `json:"agent_name"`
	SupportPhone    string `json:"support_phone"`
}

// RetryConfig holds retry/backoff settings for poll fetches
type RetryConfig struct {
	InitialBackoffMs int `json:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms"`
	MaxAttempts      int `json:"max_attempts"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"use_stdout"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	Environment  string  `json:"environment"`
}

// ConfigError indicates invalid or missing configuration
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
