package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	require.NoError(t, os.Setenv("DIRECTORY_API_KEY", "test-api-key"))
	require.NoError(t, os.Setenv("MIDPOINT_SIGNING_SECRET", "0123456789abcdef"))
}

func TestLoadConfig(t *testing.T) {
	// Test case 1: Required fields - should return error when missing
	t.Run("RequiredFieldsMissing", func(t *testing.T) {
		os.Clearenv()

		config, err := LoadConfig()

		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "required key DIRECTORY_API_KEY missing")
	})

	// Test case 2: Default values - should use defaults when not provided
	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)

		config, err := LoadConfig()

		assert.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, 8080, config.Server.Port)
		assert.Equal(t, "localhost", config.Database.Host)
		assert.Equal(t, 5432, config.Database.Port)
		assert.Equal(t, "postgres", config.Database.User)
		assert.Equal(t, "restomap", config.Database.Name)
		assert.Equal(t, "disable", config.Database.SSLMode)
		assert.Equal(t, "https://webservice.recruit.co.jp/hotpepper", config.Directory.BaseURL)
		assert.Equal(t, 20, config.Directory.ChunkSize)
		assert.Equal(t, 300*time.Second, config.Midpoint.MaxCacheTTL)
		assert.Equal(t, 60*time.Second, config.Midpoint.DefaultTTL)
		assert.Equal(t, "memory", config.Cache.Type)
		assert.True(t, config.Cache.Enabled)
		assert.Equal(t, 300*time.Second, config.Cache.TTL)
	})

	// Test case 3: Custom values - should use provided values
	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		setRequiredEnv(t)

		require.NoError(t, os.Setenv("SERVER_PORT", "9090"))
		require.NoError(t, os.Setenv("DB_HOST", "test-db-host"))
		require.NoError(t, os.Setenv("DIRECTORY_CHUNK_SIZE", "10"))
		require.NoError(t, os.Setenv("CACHE_TYPE", "redis"))
		require.NoError(t, os.Setenv("CACHE_REDIS_ADDR", "redis:6380"))

		config, err := LoadConfig()

		assert.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, 9090, config.Server.Port)
		assert.Equal(t, "test-db-host", config.Database.Host)
		assert.Equal(t, 10, config.Directory.ChunkSize)
		assert.Equal(t, "redis", config.Cache.Type)
		assert.Equal(t, "redis:6380", config.Cache.RedisAddr)
	})
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	config := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Name:     "restomap",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=restomap sslmode=disable", config.GetDSN())
}

func TestDirectoryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  DirectoryConfig
		wantErr string
	}{
		{
			name:   "valid",
			config: DirectoryConfig{APIKey: "key", BaseURL: "https://example.com", ChunkSize: 20},
		},
		{
			name:    "missing key",
			config:  DirectoryConfig{BaseURL: "https://example.com", ChunkSize: 20},
			wantErr: "DIRECTORY_API_KEY is required",
		},
		{
			name:    "bad base url",
			config:  DirectoryConfig{APIKey: "key", BaseURL: "example.com", ChunkSize: 20},
			wantErr: "must start with http:// or https://",
		},
		{
			name:    "chunk size above provider limit",
			config:  DirectoryConfig{APIKey: "key", BaseURL: "https://example.com", ChunkSize: 21},
			wantErr: "DIRECTORY_CHUNK_SIZE must be between 1 and 20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMidpointConfig_Validate(t *testing.T) {
	valid := MidpointConfig{SigningSecret: "0123456789abcdef", MaxCacheTTL: 300 * time.Second, DefaultTTL: 60 * time.Second}
	assert.NoError(t, valid.Validate())

	short := valid
	short.SigningSecret = "short"
	assert.Error(t, short.Validate())

	inverted := valid
	inverted.DefaultTTL = 600 * time.Second
	assert.Error(t, inverted.Validate())
}

func TestCacheConfig_Validate(t *testing.T) {
	assert.NoError(t, (&CacheConfig{Type: "memory"}).Validate())
	assert.NoError(t, (&CacheConfig{Type: "redis", RedisAddr: "localhost:6379"}).Validate())
	assert.Error(t, (&CacheConfig{Type: "memcached"}).Validate())
	assert.Error(t, (&CacheConfig{Type: "redis"}).Validate())
	assert.Error(t, (&CacheConfig{Type: "memory", Enabled: true, TTL: 0}).Validate())
	assert.NoError(t, (&CacheConfig{Type: "memory", Enabled: true, TTL: time.Minute}).Validate())
}
