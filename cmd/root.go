// Package cmd implements the casegen command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qaforge/casegen/internal/app"
	"github.com/qaforge/casegen/internal/config"
	"github.com/qaforge/casegen/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "casegen",
	Short: "Generate QA test cases grounded in your existing test suite",
	Long: `casegen is a retrieval-augmented test case generator.

Ingest your existing test cases once, then hand casegen a user story:
it retrieves the most similar cases from the corpus and asks a local or
hosted model to draft new positive, negative, and edge cases in the
same style and format.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the CLI logger honoring the --verbose flag.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads and validates configuration, then builds the full
// application container. Callers own the returned App and must Close it.
func setupApp(ctx context.Context, logger log.Logger) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
