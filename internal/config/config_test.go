package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithEnvVars(t *testing.T) {
	t.Setenv("NOCTURNE_PORT", "9090")
	t.Setenv("NOCTURNE_DEBUG", "true")
	t.Setenv("NOCTURNE_STORE_BACKEND", "s3")
	t.Setenv("NOCTURNE_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("NOCTURNE_S3_ACCESS_KEY_ID", "key")
	t.Setenv("NOCTURNE_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("NOCTURNE_MODEL_API_KEY", "test-key")
	t.Setenv("NOCTURNE_STAGE_TIMEOUT", "10s")
	t.Setenv("NOCTURNE_REPAIR_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, BackendS3, cfg.StoreBackend)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "key", cfg.S3AccessKey)
	assert.Equal(t, "secret", cfg.S3SecretKey)
	assert.Equal(t, "test-key", cfg.ModelAPIKey)
	assert.Equal(t, 10*time.Second, cfg.StageTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RepairInterval)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "nocturne-notes", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "gemini-1.5-flash", cfg.ModelName)
	assert.Equal(t, 45*time.Second, cfg.StageTimeout)
	assert.Zero(t, cfg.RepairInterval)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("NOCTURNE_STORE_BACKEND", "postgres")
	t.Setenv("NOCTURNE_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{StoreBackend: BackendMemory, StageTimeout: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"memory", func(c *Config) {}, ""},
		{"file without dir", func(c *Config) { c.StoreBackend = BackendFile }, "DATA_DIR"},
		{"file with dir", func(c *Config) { c.StoreBackend = BackendFile; c.DataDir = "/tmp/notes" }, ""},
		{"s3 without credentials", func(c *Config) { c.StoreBackend = BackendS3 }, "S3_ENDPOINT"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, "unknown store backend"},
		{"zero timeout", func(c *Config) { c.StageTimeout = 0 }, "STAGE_TIMEOUT"},
		{"negative interval", func(c *Config) { c.RepairInterval = -time.Second }, "REPAIR_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHasS3(t *testing.T) {
	cfg := &Config{
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "key",
		S3SecretKey: "secret",
	}
	assert.True(t, cfg.HasS3())

	cfg.S3Endpoint = ""
	assert.False(t, cfg.HasS3())
}

func TestHasModel(t *testing.T) {
	cfg := &Config{ModelAPIKey: "test-key"}
	assert.True(t, cfg.HasModel())

	cfg.ModelAPIKey = ""
	assert.False(t, cfg.HasModel())
}

func TestTracesSampleRate(t *testing.T) {
	assert.Equal(t, 1.0, (&Config{Environment: "development"}).TracesSampleRate())
	assert.Equal(t, 0.1, (&Config{Environment: "production"}).TracesSampleRate())
}
