package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/pkg/loader"
	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

var (
	// Global flags
	dbPath     string
	modelsPath string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shale",
	Short: "Shale ORM - declarative SQLite schemas with drift detection",
	Long: `Shale ORM manages declarative model schemas for SQLite. Models are
described once in a YAML manifest, compiled to deterministic DDL, applied
per model, and hash-locked so schema drift is caught before it ships.

Features:
  - Deterministic CREATE TABLE / CREATE INDEX generation
  - Per-model migration results (one bad model never blocks the rest)
  - Lockfile-based drift detection for CI
  - Interactive TUI and non-interactive CLI modes`,
	Version: "0.3.1",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "shale.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&modelsPath, "models", "models.yaml", "Path to the model manifest")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// newLogger builds the slog handler the global flags ask for. Warn level by
// default so command output stays readable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadSchemas reads the model manifest named by --models.
func loadSchemas() ([]*schema.Schema, error) {
	schemas, err := loader.LoadManifest(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return schemas, nil
}

// openDatabase opens the SQLite database named by --db.
func openDatabase() (*runtime.DB, error) {
	db, err := runtime.Open(dbPath, runtime.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
