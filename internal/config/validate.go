package config

import (
	"errors"
	"fmt"
	"slices"
)

var validLogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Validate checks all configuration values and returns all errors found. It
// accumulates every error rather than stopping at the first, so users see a
// complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: must be one of %v, got %q", validLogLevels, cfg.LogLevel))
	}

	if cfg.Concurrent < 1 {
		errs = append(errs, fmt.Errorf("concurrent: must be >= 1, got %d", cfg.Concurrent))
	}

	if cfg.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval: must be >= 0, got %d", cfg.Interval))
	}

	if cfg.Timeout < 1 {
		errs = append(errs, fmt.Errorf("timeout: must be >= 1, got %d", cfg.Timeout))
	}

	if cfg.UserAgent == "" {
		errs = append(errs, errors.New("user_agent: must not be empty"))
	}

	errs = append(errs, validateKafka(&cfg.Kafka)...)
	errs = append(errs, validatePostgres(&cfg.Postgres)...)

	return errors.Join(errs...)
}

func validateKafka(k *KafkaConfig) []error {
	var errs []error

	if k.URI == "" {
		errs = append(errs, errors.New("kafka.uri: must not be empty"))
	}

	if k.Topic == "" {
		errs = append(errs, errors.New("kafka.topic: must not be empty"))
	}

	hasTLSFile := k.CAFile != "" || k.CertFile != "" || k.KeyFile != ""
	hasAllTLSFiles := k.CAFile != "" && k.CertFile != "" && k.KeyFile != ""

	if hasTLSFile && !hasAllTLSFiles {
		errs = append(errs, errors.New("kafka: cafile, certfile, and keyfile must be set together or not at all"))
	}

	return errs
}

func validatePostgres(p *PostgresConfig) []error {
	var errs []error

	if p.Host == "" {
		errs = append(errs, errors.New("postgres.host: must not be empty"))
	}

	if p.Port < 1 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("postgres.port: must be between 1 and 65535, got %d", p.Port))
	}

	if p.User == "" {
		errs = append(errs, errors.New("postgres.user: must not be empty"))
	}

	if p.DBName == "" {
		errs = append(errs, errors.New("postgres.dbname: must not be empty"))
	}

	return errs
}
