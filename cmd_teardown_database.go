package main

import (
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/storage"
)

func newTeardownDatabaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown_database",
		Short: "Drop the database's tables, then the database itself",
		RunE:  runTeardownDatabase,
	}
}

func runTeardownDatabase(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	return storage.TeardownDatabase(cmd.Context(), cc.Cfg.Postgres, cc.Logger)
}
