package commands

import (
	"github.com/spf13/cobra"

	"github.com/marshallshelly/shale-orm/cmd/shale/output"
	"github.com/marshallshelly/shale-orm/pkg/migration"
)

var (
	// Lock flags
	lockOutput string
)

// lockCmd writes the schema lockfile
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Write the schema lockfile",
	Long: `Write a lockfile recording a hash of every model's generated DDL.
Commit the lockfile; "shale verify" then fails whenever the manifest no
longer matches what was locked.

Examples:
  shale lock                               # Write schema.lock.json
  shale lock --output db/schema.lock.json  # Write somewhere else`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLock()
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)

	lockCmd.Flags().StringVarP(&lockOutput, "output", "o", migration.DefaultLockName, "Lockfile path")
}

func runLock() error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	lock := migration.ComputeLock(schemas)
	if err := lock.Write(lockOutput); err != nil {
		return err
	}

	output.Success("Locked %d model(s) in %s", len(schemas), lockOutput)
	return nil
}
