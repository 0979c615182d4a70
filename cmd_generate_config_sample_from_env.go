package main

import (
	"github.com/spf13/cobra"

	"github.com/waltmon/walt/internal/config"
)

func newGenerateConfigSampleFromEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "generate_config_sample_from_env",
		Short:       "Print the default configuration with environment overrides applied, as TOML",
		Annotations: map[string]string{actionNoConfigAnnotation: "true"},
		RunE:        runGenerateConfigSampleFromEnv,
	}
}

func runGenerateConfigSampleFromEnv(_ *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)

	return writeConfigSample(cfg)
}
