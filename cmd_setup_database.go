package main

import (
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/storage"
)

func newSetupDatabaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup_database",
		Short: "Create the database and its tables",
		RunE:  runSetupDatabase,
	}
}

func runSetupDatabase(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	return storage.SetupDatabase(cmd.Context(), cc.Cfg.Postgres, cc.Logger)
}
