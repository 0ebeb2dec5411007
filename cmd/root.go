package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"neardup/internal/logging"
)

var (
	flagDB       string
	flagLogLevel string
	flagLogFile  string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "neardup",
	Short: "Find near-duplicate lines across a directory tree",
	Long: `neardup reads every line of every file under a directory and reports
each pair of lines whose Levenshtein distance is at most --distance,
closest pairs first.`,
	Example:      "  neardup -p ./translations -d 3\n  neardup -p ./logs -j",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runScan,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "run history database (default <user cache>/neardup/history.db)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to a file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "write logs as JSON")
}

// dbPath resolves the history database location.
func dbPath() (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "neardup", "history.db"), nil
}

func newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{Level: level, Path: flagLogFile, JSON: flagLogJSON})
}
