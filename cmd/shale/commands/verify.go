package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/cmd/shale/output"
	"github.com/marshallshelly/shale-orm/pkg/migration"
)

var (
	// Verify flags
	lockPath string
)

// verifyCmd compares the manifest against the lockfile
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the manifest against the lockfile",
	Long: `Verify that the DDL generated from the manifest still matches the
committed lockfile. Exits nonzero when any model changed, appeared or
disappeared, which makes it usable as a CI gate.

Examples:
  shale verify                             # Check against schema.lock.json
  shale verify --lock db/schema.lock.json  # Check a specific lockfile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify()
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&lockPath, "lock", migration.DefaultLockName, "Lockfile path")
}

func runVerify() error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	lock, err := migration.ReadLock(lockPath)
	if err != nil {
		return err
	}

	report := migration.Verify(schemas, lock)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.Clean() {
			return nil
		}
		return fmt.Errorf("%s", report)
	}

	if report.Clean() {
		output.Success("%s", report)
		return nil
	}

	output.Section("Schema Drift")
	for _, table := range report.Changed {
		output.Warning("changed: %s", table)
	}
	for _, table := range report.Added {
		output.Info("added: %s", table)
	}
	for _, table := range report.Removed {
		output.Error("removed: %s", table)
	}
	fmt.Println()

	return fmt.Errorf("%s", report)
}
