package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Name string `mapstructure:"name"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// DatabaseConfig holds the connection settings for the backing store.
type DatabaseConfig struct {
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	MaxRetries          int    `mapstructure:"max_retries"`
	RetryIntervalMs     int    `mapstructure:"retry_interval_ms"`
	DialTimeoutMs       int    `mapstructure:"dial_timeout_ms"`
	PathPrefix          string `mapstructure:"path_prefix"`
	LeaseTTL            int64  `mapstructure:"lease_ttl"`
	HeartbeatIntervalMs int    `mapstructure:"heartbeat_interval_ms"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Config is the top-level configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  LoggingConfig  `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
}

// Endpoint returns the database endpoint in host:port form.
func (c *DatabaseConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RetryInterval returns the wait between connection attempts.
func (c *DatabaseConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

// DialTimeout returns the per-attempt dial deadline.
func (c *DatabaseConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// HeartbeatInterval returns the interval between lease keepalives.
func (c *DatabaseConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig() error {
	// Set defaults for each sub-configuration.
	viper.SetDefault("app.name", "myapp")
	viper.SetDefault("log.log_level", "INFO")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 2379)
	viper.SetDefault("database.max_retries", 3)
	viper.SetDefault("database.retry_interval_ms", 500)
	viper.SetDefault("database.dial_timeout_ms", 2000)
	viper.SetDefault("database.path_prefix", "/myapp")
	viper.SetDefault("database.lease_ttl", 10)
	viper.SetDefault("database.heartbeat_interval_ms", 3000)
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.host", "")
	viper.SetDefault("server.port", 8080)

	// Specify the config file details.
	viper.SetConfigName("config") // Looks for config.yaml
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // current directory

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}
