package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"tripchat/internal/constants"
	"tripchat/internal/models"
	"tripchat/internal/security"
	"tripchat/internal/validation"
)

var (
	ErrMissingFallbackDir = models.ConfigError{Message: "missing fallback directory"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Fallback.Dir == "" {
		return ErrMissingFallbackDir
	}

	// A primary store is optional; a placeholder or absent DSN simply routes
	// everything to the fallback. A driver other than the two we link is a
	// config mistake worth failing fast on.
	switch c.Primary.Driver {
	case "", "postgres", "sqlite3":
	default:
		return models.ConfigError{Message: fmt.Sprintf("unsupported primary driver: %s", c.Primary.Driver)}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeout
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if err := validation.ValidateTimeout(c.Server.ReadTimeoutSec, "readTimeoutSec"); err != nil {
		return err
	}
	if err := validation.ValidateTimeout(c.Server.WriteTimeoutSec, "writeTimeoutSec"); err != nil {
		return err
	}
	if err := validation.ValidateTimeout(c.Server.IdleTimeoutSec, "idleTimeoutSec"); err != nil {
		return err
	}

	if c.Chat.PollIntervalSec <= 0 {
		c.Chat.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.Chat.AgentName == "" {
		c.Chat.AgentName = constants.DefaultAgentName
	}

	if c.Redis.TTLSec <= 0 {
		c.Redis.TTLSec = constants.DefaultUnreadCacheTTLSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if driver := os.Getenv("TRIPCHAT_PRIMARY_DRIVER"); driver != "" {
		c.Primary.Driver = driver
	}

	// SECURITY: connection strings carry credentials and should come from the
	// environment rather than the config file.
	if dsn := os.Getenv("TRIPCHAT_PRIMARY_DSN"); dsn != "" {
		c.Primary.DSN = dsn
	}

	if dir := os.Getenv("TRIPCHAT_FALLBACK_DIR"); dir != "" {
		c.Fallback.Dir = dir
	}
	if addr := os.Getenv("TRIPCHAT_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("TRIPCHAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
