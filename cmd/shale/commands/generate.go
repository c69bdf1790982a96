package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/cmd/shale/output"
	"github.com/marshallshelly/shale-orm/pkg/migration"
)

var (
	// Generate flags
	noIndexes  bool
	cleanSlate bool
	outputPath string
)

// generateCmd prints the schema SQL for the manifest
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate schema SQL from the model manifest",
	Long: `Generate the CREATE TABLE and CREATE INDEX script for every model in
the manifest. Generation is deterministic: the same manifest always
produces byte-identical SQL, which is what the lockfile hashes.

Examples:
  shale generate                        # Print schema SQL
  shale generate --cleanslate           # Prefix DROP TABLE statements
  shale generate --output schema.sql    # Write to a file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate()
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&noIndexes, "no-indexes", false, "Omit CREATE INDEX statements")
	generateCmd.Flags().BoolVar(&cleanSlate, "cleanslate", false, "Prefix DROP TABLE statements for a clean rebuild")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write SQL to a file instead of stdout")
}

func runGenerate() error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	opts := migration.Options{IncludeIndexes: !noIndexes, CleanSlate: cleanSlate}
	sqlText := migration.SchemaSQL(schemas, opts)

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(sqlText), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		output.Success("Wrote schema for %d model(s) to %s", len(schemas), outputPath)
		return nil
	}

	fmt.Print(sqlText)
	return nil
}
