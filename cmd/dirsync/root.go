package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/dirsync/pkg/dirsync"
	"github.com/arthur-debert/dirsync/pkg/dirsync/config"
)

var (
	cfgFile   string
	verbosity int

	// Loaded by the root command before any subcommand runs.
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dirsync",
	Short: "Content-aware move planning between directory trees",
	Long: `dirsync catalogs directory trees by content signature and plans the
moves, copies, and deletes that line a destination tree up with a source
tree, so that bytes the destination already holds are never transferred
again. Plans are written as reviewable shell scripts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg, verbosity)
		return err
	},
}

// newLogger builds the command logger; -v flags outrank the configured
// level.
func newLogger(cfg *config.Config, verbosity int) (zerolog.Logger, error) {
	level, err := dirsync.LogLevelFromString(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	switch {
	case verbosity == 1:
		level = zerolog.InfoLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity >= 3:
		level = zerolog.TraceLevel
	}
	return dirsync.NewLogger(os.Stderr, level), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: config.yaml under $XDG_CONFIG_HOME/dirsync)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"raise log verbosity (-v info, -vv debug, -vvv trace)")

	// Add version command
	rootCmd.AddCommand(versionCmd)

	// Add subcommands
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newDupsCommand())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the version number of dirsync`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dirsync version %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
