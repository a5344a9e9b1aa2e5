// Package config provides configuration management for certsmith using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Configuration is read from .certsmith.yml (or the file named by --config
// or CERTSMITH_CONFIG_FILE), overridden by CERTSMITH_ environment variables
// and finally by flags bound in cmd. Defaults are applied after unmarshal and
// the result is validated before use.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/certsmith/internal/logging"
)

// Defaults for values missing from every configuration source.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8080
	DefaultOutputDir       = "certificates"
	DefaultNameField       = "name"
	DefaultImageQuality    = 85
	DefaultDocumentQuality = 80
	DefaultImageFormat     = "jpg"
	DefaultArchiveFormat   = "jpg"
	DefaultPause           = 100 * time.Millisecond
	DefaultFetchRetries    = 3
	DefaultFetchTimeout    = 15 * time.Second
	DefaultDebounce        = 150 * time.Millisecond
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Export ExportConfig `mapstructure:"export" yaml:"export"`
	Assets AssetsConfig `mapstructure:"assets" yaml:"assets"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Open bool   `mapstructure:"open" yaml:"open"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ExportConfig struct {
	OutputDir       string        `mapstructure:"output_dir" yaml:"output_dir"`
	NameField       string        `mapstructure:"name_field" yaml:"name_field"`
	ImageQuality    int           `mapstructure:"image_quality" yaml:"image_quality"`
	DocumentQuality int           `mapstructure:"document_quality" yaml:"document_quality"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Pause           time.Duration `mapstructure:"pause" yaml:"pause"`
	// ImageFormat is the default format of single-certificate exports
	ImageFormat string `mapstructure:"image_format" yaml:"image_format"`
	// ArchiveFormat is the image format of batch archive entries
	ArchiveFormat string `mapstructure:"archive_format" yaml:"archive_format"`
}

type AssetsConfig struct {
	FontsDir     string        `mapstructure:"fonts_dir" yaml:"fonts_dir"`
	FetchRetries int           `mapstructure:"fetch_retries" yaml:"fetch_retries"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Logger builds the structured logger described by the log section, writing
// to w (stderr when nil).
func (l LogConfig) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = l.Format
	if w != nil {
		cfg.Output = w
	}
	return logging.NewLogger(cfg), nil
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applies defaults and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Zero is a meaningful value for these, so only default when unset
	if !v.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if !v.IsSet("watch.enabled") {
		config.Watch.Enabled = true
	}
	if !v.IsSet("export.pause") {
		config.Export.Pause = DefaultPause
	}
	if !v.IsSet("assets.fetch_retries") {
		config.Assets.FetchRetries = DefaultFetchRetries
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Export.OutputDir == "" {
		config.Export.OutputDir = DefaultOutputDir
	}
	if config.Export.NameField == "" {
		config.Export.NameField = DefaultNameField
	}
	if config.Export.ImageQuality == 0 {
		config.Export.ImageQuality = DefaultImageQuality
	}
	if config.Export.DocumentQuality == 0 {
		config.Export.DocumentQuality = DefaultDocumentQuality
	}
	if config.Export.ImageFormat == "" {
		config.Export.ImageFormat = DefaultImageFormat
	}
	config.Export.ImageFormat = strings.ToLower(config.Export.ImageFormat)
	if config.Export.ArchiveFormat == "" {
		config.Export.ArchiveFormat = DefaultArchiveFormat
	}
	config.Export.ArchiveFormat = strings.ToLower(config.Export.ArchiveFormat)
	if config.Assets.FetchTimeout == 0 {
		config.Assets.FetchTimeout = DefaultFetchTimeout
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateExportConfig(&config.Export); err != nil {
		return fmt.Errorf("export config: %w", err)
	}
	if err := validateAssetsConfig(&config.Assets); err != nil {
		return fmt.Errorf("assets config: %w", err)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce must not be negative")
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/", " "}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains invalid character: %q", char)
		}
	}

	return nil
}

// validateExportConfig validates export configuration values
func validateExportConfig(config *ExportConfig) error {
	if err := validatePath(config.OutputDir); err != nil {
		return fmt.Errorf("invalid output_dir '%s': %w", config.OutputDir, err)
	}
	if config.ImageQuality < 1 || config.ImageQuality > 100 {
		return fmt.Errorf("image_quality %d is not in valid range 1-100", config.ImageQuality)
	}
	if config.DocumentQuality < 1 || config.DocumentQuality > 100 {
		return fmt.Errorf("document_quality %d is not in valid range 1-100", config.DocumentQuality)
	}
	if config.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if config.Pause < 0 {
		return fmt.Errorf("pause must not be negative")
	}
	switch config.ImageFormat {
	case "jpg", "jpeg", "png", "pdf":
	default:
		return fmt.Errorf("image_format %q must be jpg, png or pdf", config.ImageFormat)
	}
	switch config.ArchiveFormat {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("archive_format %q must be jpg or png", config.ArchiveFormat)
	}
	return nil
}

// validateAssetsConfig validates asset loading configuration values
func validateAssetsConfig(config *AssetsConfig) error {
	if config.FontsDir != "" {
		if err := validatePath(config.FontsDir); err != nil {
			return fmt.Errorf("invalid fonts_dir '%s': %w", config.FontsDir, err)
		}
	}
	if config.FetchRetries < 0 {
		return fmt.Errorf("fetch_retries must not be negative")
	}
	if config.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative")
	}
	return nil
}

// validateLogConfig validates logging configuration values
func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format %q must be text or json", config.Format)
	}
	return nil
}

// validatePath validates a file path
func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
