package main

import (
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/consumer"
	"github.com/waltmon/walt/internal/storage"
)

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Subscribe to the message log and persist results to the relational store",
		RunE:  runConsume,
	}
}

func runConsume(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	sink := storage.NewPostgresSink(cc.Cfg.Postgres, cc.Logger)
	c := consumer.New(*cc.Cfg, sink, cc.Logger)

	return c.Run(ctx)
}
