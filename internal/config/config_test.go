package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(viper.New())

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Global.ShutdownTimeout)
	assert.Equal(t, DefaultWordsPerPage, cfg.Content.DefaultWordsPerPage)
	assert.Equal(t, ContentBackendDatabase, cfg.Content.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
	assert.True(t, cfg.Cache.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "10m")
	t.Setenv("CONTENT_WORDS_PER_PAGE", "250")
	t.Setenv("TASKS_ENABLED", "false")

	cfg := Load(viper.New())
	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 250, cfg.Content.DefaultWordsPerPage)
	assert.False(t, cfg.Tasks.Enabled)
}

func TestLoad_ExplicitValueWinsOverEnvironment(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/from/env.db")

	v := viper.New()
	v.Set("database_path", "/from/flag.db")
	assert.Equal(t, "/from/flag.db", Load(v).Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "unsupported DATABASE_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "DATABASE_DSN is required"},
		{"s3 without bucket", func(c *Config) { c.Content.Backend = ContentBackendS3 }, "CONTENT_S3_BUCKET"},
		{"unknown content backend", func(c *Config) { c.Content.Backend = "ftp" }, "unsupported CONTENT_BACKEND"},
		{"words per page above max", func(c *Config) { c.Content.DefaultWordsPerPage = MaxWordsPerPage + 1 }, "CONTENT_WORDS_PER_PAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load(viper.New())
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("page sizes are clamped", func(t *testing.T) {
		cfg := Load(viper.New())
		cfg.Catalog.MaxPageSize = 1000
		cfg.Catalog.DefaultPageSize = 0
		require.NoError(t, cfg.Validate())
		assert.Equal(t, MaxCatalogPageSize, cfg.Catalog.MaxPageSize)
		assert.Equal(t, 20, cfg.Catalog.DefaultPageSize)
	})
}
