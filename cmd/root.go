// Package cmd provides the command-line interface for certsmith.
//
// Configuration is read from several sources with clear precedence:
//  1. Command-line flags (--port, --out, etc.) - highest priority
//  2. Individual environment variables (CERTSMITH_SERVER_PORT, etc.)
//  3. The configuration file: --config, CERTSMITH_CONFIG_FILE or .certsmith.yml
//  4. Built-in defaults - lowest priority
//
// Environment variables follow the CERTSMITH_<SECTION>_<OPTION> pattern,
// for example CERTSMITH_EXPORT_OUTPUT_DIR or CERTSMITH_LOG_LEVEL.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/certsmith/internal/config"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "certsmith",
	Short: "Generate personalised certificates from a template and a record file",
	Long: `certsmith places text fields on a background image and renders one
certificate per record of a CSV, JSON or YAML file, as images, a multi-page
PDF or a ZIP archive.

Quick Start:
  certsmith init background.png             Create template.yaml from a background
  certsmith field add --name name --y 260   Place a field
  certsmith sample                          Write sample-certificate-data.csv
  certsmith serve --data people.csv         Preview in the browser
  certsmith export --data people.csv --all  Render every certificate`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		// Failures are always reported, whatever the configured level
		logger := logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.LevelDebug,
			Format: viper.GetString("log.format"),
			Output: os.Stderr,
		})
		errors.NewErrorHandler(logger).Handle(context.Background(), err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .certsmith.yml, can also use CERTSMITH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig selects the configuration file and enables CERTSMITH_
// environment overrides. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("CERTSMITH_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".certsmith")
	}

	viper.SetEnvPrefix("CERTSMITH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the merged configuration and builds the logger it
// describes. Log output goes to the command's error stream.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid, "failed to load configuration")
	}
	logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// commandContext returns the command's context, or a background context
// when the command was invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
