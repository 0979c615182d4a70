package main

import (
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/producer"
)

func newProduceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "produce",
		Short: "Probe configured URLs and publish results to the message log",
		RunE:  runProduce,
	}
}

func runProduce(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	p := producer.New(*cc.Cfg, cc.Logger)

	return p.Run(ctx)
}
