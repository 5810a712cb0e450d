package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "mediabunny.db", cfg.Database.DSN)

	assert.Equal(t, "./data", cfg.Storage.BaseDir)
	assert.Equal(t, "output", cfg.Storage.OutputDir)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, defaultMaxConcurrency, cfg.Conversion.MaxConcurrency)
	assert.Equal(t, "ffmpeg", cfg.Conversion.WorkerBackend)

	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, defaultJobRetention, cfg.Retention.MaxAge)
}

func TestLoadWithMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDIABUNNY_SERVER_PORT", "9999")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Server.Port)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadWorkerBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Conversion.WorkerBackend = "gpu-cluster"
	assert.Error(t, cfg.Validate())
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

func TestStorageOutputPath(t *testing.T) {
	cfg := StorageConfig{BaseDir: "/var/lib/mediabunny", OutputDir: "output"}
	assert.Equal(t, "/var/lib/mediabunny/output", cfg.OutputPath())
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "test.db"},
		Storage:  StorageConfig{BaseDir: "./data"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Conversion: ConversionConfig{
			MaxConcurrency: 1,
			WorkerBackend:  "ffmpeg",
		},
		Retention: RetentionConfig{MaxAge: time.Hour},
	}
}
