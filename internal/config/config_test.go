package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, DefaultOutputDir, cfg.Export.OutputDir)
	assert.Equal(t, DefaultNameField, cfg.Export.NameField)
	assert.Equal(t, DefaultImageQuality, cfg.Export.ImageQuality)
	assert.Equal(t, DefaultDocumentQuality, cfg.Export.DocumentQuality)
	assert.Equal(t, DefaultImageFormat, cfg.Export.ImageFormat)
	assert.Zero(t, cfg.Export.SettleDelay)
	assert.Equal(t, DefaultPause, cfg.Export.Pause)
	assert.Equal(t, 100*time.Millisecond, cfg.Export.Pause)
	assert.Equal(t, DefaultArchiveFormat, cfg.Export.ArchiveFormat)
	assert.Equal(t, DefaultFetchRetries, cfg.Assets.FetchRetries)
	assert.Equal(t, DefaultFetchTimeout, cfg.Assets.FetchTimeout)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadExplicitZeroPause(t *testing.T) {
	v := viper.New()
	v.Set("export.pause", "0s")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.Export.Pause, "an explicit zero disables the pause")
}

func TestLoadGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.port", 9090)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".certsmith.yml")
	content := `
server:
  host: 127.0.0.1
  port: 0
export:
  output_dir: out
  name_field: full_name
  image_quality: 92
  settle_delay: 250ms
  pause: 1s
  image_format: PNG
  archive_format: Jpeg
assets:
  fetch_retries: 0
  fetch_timeout: 5s
watch:
  enabled: false
  debounce: 50ms
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 0, cfg.Server.Port, "explicit zero port is kept")
	assert.Equal(t, "out", cfg.Export.OutputDir)
	assert.Equal(t, "full_name", cfg.Export.NameField)
	assert.Equal(t, 92, cfg.Export.ImageQuality)
	assert.Equal(t, DefaultDocumentQuality, cfg.Export.DocumentQuality)
	assert.Equal(t, 250*time.Millisecond, cfg.Export.SettleDelay)
	assert.Equal(t, time.Second, cfg.Export.Pause)
	assert.Equal(t, "png", cfg.Export.ImageFormat)
	assert.Equal(t, "jpeg", cfg.Export.ArchiveFormat)
	assert.Equal(t, 0, cfg.Assets.FetchRetries)
	assert.Equal(t, 5*time.Second, cfg.Assets.FetchTimeout)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    interface{}
		contains string
	}{
		{"port too large", "server.port", 70000, "port"},
		{"negative port", "server.port", -1, "port"},
		{"bad host", "server.host", "localhost;rm", "host"},
		{"quality too high", "export.image_quality", 101, "image_quality"},
		{"document quality negative", "export.document_quality", -5, "document_quality"},
		{"negative pause", "export.pause", "-1s", "pause"},
		{"unknown image format", "export.image_format", "gif", "image_format"},
		{"document archive entries", "export.archive_format", "pdf", "archive_format"},
		{"dangerous output dir", "export.output_dir", "out;rm", "output_dir"},
		{"negative retries", "assets.fetch_retries", -2, "fetch_retries"},
		{"unknown log level", "log.level", "loud", "log level"},
		{"unknown log format", "log.format", "xml", "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadUnmarshalError(t *testing.T) {
	v := viper.New()
	v.Set("server.port", "invalid_port")

	_, err := LoadFrom(v)
	assert.Error(t, err)
}

func TestLogConfigLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "text"}.Logger(&buf)
	require.NoError(t, err)

	logger.Info(context.Background(), "suppressed")
	logger.Warn(context.Background(), nil, "shown")
	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "shown")

	_, err = LogConfig{Level: "nope"}.Logger(nil)
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("certificates"))
	assert.NoError(t, validatePath("/tmp/out"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("   "))
	assert.Error(t, validatePath("out|tee"))
}
