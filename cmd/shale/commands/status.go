package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/cmd/shale/output"
	"github.com/marshallshelly/shale-orm/pkg/migration"
)

// statusCmd shows each model's migration standing
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show model migration status",
	Long: `Show each model's standing against the tracking table. Pending models
have never been applied, applied models match their recorded DDL hash,
and drifted models were applied from DDL that no longer matches the
manifest.

Examples:
  shale status --db app.db    # Show model status
  shale status --json         # Output in JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	engine := migration.NewEngine(db, migration.WithLogger(newLogger()))

	status, err := engine.Status(ctx, schemas)
	if err != nil {
		return fmt.Errorf("failed to get model status: %w", err)
	}

	// Output
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	// Table output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODEL\tTABLE\tSTATUS\tAPPLIED AT")
	_, _ = fmt.Fprintln(w, "-----\t-----\t------\t----------")

	for _, record := range status {
		appliedAt := "N/A"
		if !record.AppliedAt.IsZero() {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			record.Model,
			record.Table,
			output.StatusIcon(string(record.Status)),
			string(record.Status),
			appliedAt,
		)
	}
	_ = w.Flush()

	// Summary
	applied := 0
	pending := 0
	drifted := 0
	for _, record := range status {
		switch record.Status {
		case migration.StatusApplied:
			applied++
		case migration.StatusPending:
			pending++
		case migration.StatusDrifted:
			drifted++
		}
	}

	fmt.Printf("\nSummary: %d applied, %d pending", applied, pending)
	if drifted > 0 {
		fmt.Printf(", %d drifted", drifted)
	}
	fmt.Println()

	return nil
}
