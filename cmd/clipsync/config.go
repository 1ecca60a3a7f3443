package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/config"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPSYNC_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPSYNC_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipsync")
		v.AddConfigPath("/etc/clipsync/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "clipsync"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "", "log format: auto|text|json (default: logging.format)")
	cmd.Flags().String("log-level", "", "log level: DEBUG|INFO|WARNING|ERROR|CRITICAL (default: logging.level)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// setupLogging reads logging flags from viper and configures slog. Flags win
// over the logging section of the config file.
func setupLogging(v *viper.Viper, cfg *config.Config) {
	interactive := v.GetBool("no-background")
	format := v.GetString("log-format")
	if format == "" {
		format = cfg.Logging.Format
	}
	resolveLogging(interactive, format, v.GetString("log-level"), cfg.Logging.Level)
}
