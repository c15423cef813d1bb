// Package config provides configuration management for the microservice.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Endy02/microservice/auth"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mail     MailConfig     `mapstructure:"mail"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the server listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds SQLite database settings.
type DatabaseConfig struct {
	// Path to the SQLite database file. ":memory:" runs fully in memory.
	Path        string `mapstructure:"path"`
	JournalMode string `mapstructure:"journal_mode"`
	BusyTimeout int    `mapstructure:"busy_timeout"`
}

// DSN returns the SQLite connection string.
func (c DatabaseConfig) DSN() string {
	if c.Path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)",
		c.Path, c.JournalMode, c.BusyTimeout)
}

// RedisConfig holds Redis connection settings. Redis backs the refresh
// token revocation set; when disabled an in-memory set is used instead.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds token signing settings. It satisfies auth.Config.
type AuthConfig struct {
	// SigningKey signs both JWT session tokens and activation/reset tokens.
	SigningKey string `mapstructure:"signing_key"`

	// AccessTokenExpiration is the access token lifetime in minutes.
	AccessTokenExpiration int `mapstructure:"access_token_expiration"`

	// RefreshTokenExpiration is the refresh token lifetime in hours.
	RefreshTokenExpiration int `mapstructure:"refresh_token_expiration"`

	// StateTokenExpiration is the activation/reset link lifetime in seconds.
	StateTokenExpiration int `mapstructure:"state_token_expiration"`

	Issuer     string   `mapstructure:"issuer"`
	Audience   []string `mapstructure:"audience"`
	ContextKey string   `mapstructure:"context_key"`
	AuthScheme string   `mapstructure:"auth_scheme"`

	// Domain is the public hostname embedded in activation and reset links.
	Domain string `mapstructure:"domain"`
}

var _ auth.Config = AuthConfig{}

func (c AuthConfig) GetSigningKey() string          { return c.SigningKey }
func (c AuthConfig) GetAccessTokenExpiration() int  { return c.AccessTokenExpiration }
func (c AuthConfig) GetRefreshTokenExpiration() int { return c.RefreshTokenExpiration }
func (c AuthConfig) GetStateTokenExpiration() int   { return c.StateTokenExpiration }
func (c AuthConfig) GetIssuer() string              { return c.Issuer }
func (c AuthConfig) GetAudience() []string          { return c.Audience }
func (c AuthConfig) GetContextKey() string          { return c.ContextKey }
func (c AuthConfig) GetAuthScheme() string          { return c.AuthScheme }
func (c AuthConfig) GetDomain() string              { return c.Domain }

// MailConfig holds outbound mail settings.
type MailConfig struct {
	// From is the sender address on account lifecycle emails.
	From string `mapstructure:"from"`

	// LogOnly renders messages and writes them to the log instead of
	// delivering them. Useful for development.
	LogOnly bool `mapstructure:"log_only"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Addr returns the SMTP relay address in host:port format.
func (c MailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with MICROSERVICE_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MICROSERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/microservice")
	}

	// Config file not found is acceptable, defaults and env vars suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.path", "./data/microservice.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.access_token_expiration", 30)     // minutes
	v.SetDefault("auth.refresh_token_expiration", 72)    // hours
	v.SetDefault("auth.state_token_expiration", 259200)  // seconds, 3 days
	v.SetDefault("auth.issuer", "microservice")
	v.SetDefault("auth.audience", []string{"microservice"})
	v.SetDefault("auth.context_key", "user")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.domain", "localhost:8000")

	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.log_only", true)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}

	if c.Auth.AccessTokenExpiration <= 0 {
		return fmt.Errorf("auth.access_token_expiration must be positive")
	}
	if c.Auth.RefreshTokenExpiration <= 0 {
		return fmt.Errorf("auth.refresh_token_expiration must be positive")
	}
	if c.Auth.StateTokenExpiration <= 0 {
		return fmt.Errorf("auth.state_token_expiration must be positive")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
