package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the ledger schema and the audit tables",
	Long: `Apply the SQLite schema to the configured database. When an audit
project is configured, also create the BigQuery dataset and tables.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	// opening the database applies the schema
	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "Ledger schema is up to date: %s\n", a.Config.Database.Path)

	if a.AuditLog == nil {
		return nil
	}
	if err := a.AuditLog.EnsureTables(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Audit tables are up to date: %s.%s\n", a.Config.Audit.ProjectID, a.Config.Audit.Dataset)
	return nil
}
