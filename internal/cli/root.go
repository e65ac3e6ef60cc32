// Package cli implements the ghpr command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/florenceboettger/ghpr-tools/internal/config"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

// version is overridden at build time through the linker.
var version = "dev"

// Persistent flags.
var (
	flagVerbose   bool
	flagLogFile   string
	flagConfigDir string
)

// cfg is loaded on first use, so commands that never read
// configuration do not touch the home directory.
var cfg *config.Store

var logFile *os.File

var rootCmd = &cobra.Command{
	Use:   "ghpr",
	Short: "Mine GitHub pull requests and issues into datasets",
	Long: `ghpr crawls the pull requests and issues of GitHub repositories into
a corpus of JSON and diff files, and renders such a corpus into a
tabular dataset.

A typical run crawls first and builds the dataset second:

  ghpr crawl --start-date 2024-01-01 --end-date 2024-06-30 golang/go
  ghpr dataset repos dataset.csv`,
	PersistentPreRunE: setupRun,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(
		&flagLogFile, "log-file", "", "Record a timestamped log of the run to this file")
	rootCmd.PersistentFlags().StringVar(
		&flagConfigDir, "config", "", "Config directory (default ~/.ghpr-tools)")
}

func setupRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)
	if flagLogFile != "" {
		f, err := os.Create(flagLogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		logger.SetFile(f)
	}
	return nil
}

// configStore returns the configuration store, loading it on first use.
func configStore() (*config.Store, error) {
	if cfg != nil {
		return cfg, nil
	}
	store, err := config.NewStore(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = store
	return cfg, nil
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	defer func() {
		if logFile != nil {
			logger.SetFile(nil)
			logFile.Close()
			logFile = nil
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// stringSetting resolves a string option: an explicit flag wins, then
// the config file, then the flag's built-in default.
func stringSetting(cmd *cobra.Command, flag, key, value string) string {
	if cmd.Flags().Changed(flag) || cfg == nil {
		return value
	}
	if configured := cfg.GetString(key); configured != "" {
		return configured
	}
	return value
}

// intSetting resolves an integer option the same way.
func intSetting(cmd *cobra.Command, flag, key string, value int) int {
	if cmd.Flags().Changed(flag) || cfg == nil {
		return value
	}
	if _, ok := cfg.Get(key); ok {
		return cfg.GetInt(key)
	}
	return value
}

// boolSetting resolves a boolean option the same way.
func boolSetting(cmd *cobra.Command, flag, key string, value bool) bool {
	if cmd.Flags().Changed(flag) || cfg == nil {
		return value
	}
	if _, ok := cfg.Get(key); ok {
		return cfg.GetBool(key)
	}
	return value
}

// floatSetting resolves a float option the same way. TOML numbers
// arrive as float64 or int64 depending on how they were written.
func floatSetting(cmd *cobra.Command, flag, key string, value float64) float64 {
	if cmd.Flags().Changed(flag) || cfg == nil {
		return value
	}
	raw, ok := cfg.Get(key)
	if !ok {
		return value
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return value
	}
}
