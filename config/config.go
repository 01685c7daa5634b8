package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"restomap.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Database  DatabaseConfig  `split_words:"true"`
	Directory DirectoryConfig `split_words:"true"`
	Midpoint  MidpointConfig  `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"restomap"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted database connection string
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// DirectoryConfig contains settings for the external restaurant directory API
type DirectoryConfig struct {
	APIKey    string `envconfig:"DIRECTORY_API_KEY" required:"true"`
	BaseURL   string `envconfig:"DIRECTORY_BASE_URL" default:"https://webservice.recruit.co.jp/hotpepper"`
	ChunkSize int    `envconfig:"DIRECTORY_CHUNK_SIZE" default:"20"`
}

// MidpointConfig contains settings for coordinate signing and verification
type MidpointConfig struct {
	SigningSecret string        `envconfig:"MIDPOINT_SIGNING_SECRET" required:"true"`
	MaxCacheTTL   time.Duration `envconfig:"MIDPOINT_MAX_CACHE_TTL" default:"300s"`
	DefaultTTL    time.Duration `envconfig:"MIDPOINT_DEFAULT_TTL" default:"60s"`
}

// CacheConfig contains settings for the verification result cache
type CacheConfig struct {
	Enabled       bool          `envconfig:"CACHE_ENABLED" default:"true"`
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"300s"`
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	RedisAddr     string        `envconfig:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"CACHE_REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"CACHE_REDIS_DB" default:"0"`
	DialTimeout   time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout   time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s"`
	WriteTimeout  time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Directory.Validate(); err != nil {
		return err
	}
	if err := c.Midpoint.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// ValidateSSLMode validates the SSL mode configuration
func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	if err := d.ValidateSSLMode(); err != nil {
		return err
	}
	return nil
}

// Validate checks directory API configuration
func (d *DirectoryConfig) Validate() error {
	if d.APIKey == "" {
		return errors.NewConfigurationError("DIRECTORY_API_KEY is required", nil)
	}
	if d.BaseURL == "" {
		return errors.NewConfigurationError("DIRECTORY_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(d.BaseURL, "http://") && !strings.HasPrefix(d.BaseURL, "https://") {
		return errors.NewConfigurationError("DIRECTORY_BASE_URL must start with http:// or https://", nil)
	}
	if d.ChunkSize < 1 || d.ChunkSize > 20 {
		// The directory provider rejects more than 20 ids per request.
		return errors.NewConfigurationError("DIRECTORY_CHUNK_SIZE must be between 1 and 20", nil)
	}
	return nil
}

// Validate checks midpoint signing configuration
func (m *MidpointConfig) Validate() error {
	if m.SigningSecret == "" {
		return errors.NewConfigurationError("MIDPOINT_SIGNING_SECRET is required", nil)
	}
	if len(m.SigningSecret) < 16 {
		return errors.NewConfigurationError("MIDPOINT_SIGNING_SECRET must be at least 16 characters", nil)
	}
	if m.MaxCacheTTL < time.Second {
		return errors.NewConfigurationError("MIDPOINT_MAX_CACHE_TTL must be at least 1 second", nil)
	}
	if m.DefaultTTL < time.Second {
		return errors.NewConfigurationError("MIDPOINT_DEFAULT_TTL must be at least 1 second", nil)
	}
	if m.DefaultTTL > m.MaxCacheTTL {
		return errors.NewConfigurationError("MIDPOINT_DEFAULT_TTL cannot exceed MIDPOINT_MAX_CACHE_TTL", nil)
	}
	return nil
}

// Validate checks cache configuration
func (c *CacheConfig) Validate() error {
	if c.Type != "memory" && c.Type != "redis" {
		return errors.NewConfigurationError("CACHE_TYPE must be either 'memory' or 'redis'", nil)
	}
	if c.Type == "redis" && c.RedisAddr == "" {
		return errors.NewConfigurationError("CACHE_REDIS_ADDR cannot be empty when CACHE_TYPE is redis", nil)
	}
	if c.Enabled && c.TTL < time.Second {
		return errors.NewConfigurationError("CACHE_TTL must be at least 1 second", nil)
	}
	return nil
}
