// Command finder evaluates saved filters against a world file and serves the
// alert scheduler over HTTP.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/logger"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	worldPath  string
	debug      bool
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finder",
		Short: "Compose and evaluate entity filters",
		Long: `finder composes predicate trees into named filters, evaluates them against
the maps of a world file and raises alerts when a filter keeps matching.

  finder catalog                 List the predicate menu
  finder show <tree.yaml>        Print a filter tree
  finder eval <tree.yaml>        Evaluate a filter against a map
  finder alerts                  List stored alerts and their history
  finder serve                   Run the scheduler and HTTP API`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ./finder.yaml)")
	rootCmd.PersistentFlags().StringVar(&worldPath, "world", "", "world file (overrides world.file)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newEvalCmd(),
		newCatalogCmd(),
		newShowCmd(),
		newAlertsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the config file and applies command line overrides.
func loadSettings() (*conf.Settings, error) {
	settings, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}
	if worldPath != "" {
		settings.World.File = worldPath
	}
	if debug {
		settings.Log.Level = "debug"
	}
	return settings, nil
}

// newLogger builds the process logger. With a log file configured records go
// to the rotated file; otherwise to stderr.
func newLogger(settings *conf.Settings) (logger.Logger, io.Closer, error) {
	level := logger.ParseLevel(settings.Log.Level)
	if settings.Log.File == "" {
		return logger.NewSlogLogger(os.Stderr, level, &logger.Options{JSON: settings.Log.JSON}), nopCloser{}, nil
	}
	log, closer, err := logger.NewFileLogger(logger.FileConfig{
		Path:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		Level:      level,
		JSON:       settings.Log.JSON,
		Console:    debug,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
