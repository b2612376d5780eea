package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"askrepo/internal/config"
	"askrepo/internal/slogutil"
	"askrepo/internal/version"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "askrepo",
	Short: "askrepo - repository query and scan backend",
	Long: `askrepo answers natural-language questions about a code repository by
selecting relevant files, assembling a token-bounded context, and streaming
an answer. It also runs hybrid security scans combining pattern rules with
selective AI re-scans. Results are cached in Redis and every cache failure
degrades gracefully.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("askrepo version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default: ./askrepo.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: text or json")
}

// loadConfig resolves configuration with CLI flags taking precedence over
// the file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slogutil.NewLogger(os.Stderr, cfg.Logging.Format, slogutil.LevelFromString(cfg.Logging.Level))
}
