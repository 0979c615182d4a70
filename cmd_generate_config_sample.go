package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/config"
)

func newGenerateConfigSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "generate_config_sample",
		Short:       "Print a ready-to-edit default configuration as TOML",
		Annotations: map[string]string{actionNoConfigAnnotation: "true"},
		RunE:        runGenerateConfigSample,
	}
}

func runGenerateConfigSample(_ *cobra.Command, _ []string) error {
	return writeConfigSample(config.DefaultConfig())
}

// writeConfigSample marshals cfg to TOML on stdout, mirroring the
// original's config.generate_config_sample (SPEC_FULL.md §4 item 1).
func writeConfigSample(cfg *config.Config) error {
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		return fmt.Errorf("generating config sample: %w", err)
	}

	return nil
}
