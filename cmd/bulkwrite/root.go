package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/bulkwrite/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "bulkwrite",
	Short: "Metadata-driven bulk writes",
	Long: `bulkwrite - metadata-driven bulk writes

bulkwrite generates schema definitions for tagged structs and reserves
sequence values for batched inserts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(newLogger(verbose))

		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs
const (
	groupCode     = "code"
	groupDatabase = "database"
	groupUtility  = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover bulkwrite.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupCode, Title: "Code:"},
		&cobra.Group{ID: groupDatabase, Title: "Database:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	genCmd.GroupID = groupCode
	rootCmd.AddCommand(genCmd)

	reserveCmd.GroupID = groupDatabase
	rootCmd.AddCommand(reserveCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// newLogger returns a stderr logger: warnings by default, info with -v,
// debug with -vv.
func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printf writes to stdout unless --quiet is set.
func printf(format string, args ...any) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
