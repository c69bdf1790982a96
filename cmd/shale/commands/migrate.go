package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/cmd/shale/output"
	"github.com/marshallshelly/shale-orm/cmd/shale/tui"
	"github.com/marshallshelly/shale-orm/pkg/migration"
)

var (
	// Migrate flags
	dryRun      bool
	interactive bool
)

// migrateCmd applies every model schema to the database
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply model schemas to the database",
	Long: `Apply the DDL for every model in the manifest. Models are applied
independently: a failure on one model is reported but never blocks the
others, and each successful application is recorded with the hash of
the DDL it ran.

Examples:
  shale migrate --db app.db     # Apply all models
  shale migrate --dry-run       # Print the SQL without applying
  shale migrate --interactive   # Pick models in the TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the SQL without applying it")
}

func runMigrate() error {
	// Run interactive TUI if flag is set
	if interactive {
		return tui.RunMigrateUI(dbPath, modelsPath)
	}

	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	if dryRun {
		output.Section("DRY RUN - Schema SQL")
		fmt.Print(migration.SchemaSQL(schemas, migration.DefaultOptions()))
		return nil
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	engine := migration.NewEngine(db, migration.WithLogger(newLogger()))

	output.Section("Applying Models")
	results := engine.MigrateAll(ctx, schemas)

	applied := 0
	failed := 0
	for _, sch := range schemas {
		if err := results[sch.Name()]; err != nil {
			output.Error("Failed to apply %s: %v", sch.Name(), err)
			failed++
			continue
		}
		output.Success("Applied %s → %s", sch.Name(), sch.Table())
		applied++
	}

	fmt.Println()
	if failed > 0 {
		output.Warning("%d model(s) applied, %d failed", applied, failed)
		return fmt.Errorf("%d model(s) failed to apply", failed)
	}
	output.Success("Successfully applied %d model(s)", applied)
	return nil
}
