package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, applies environment variable
// overrides, validates the result, and returns the resulting Config.
// Sections and scalar fields absent from the file retain their default
// values (BurntSushi/toml decodes into the pre-populated defaults, only
// touching keys actually present). Map-typed fields (headers, url_map) are
// the exception: BurntSushi/toml's decoder only allocates a fresh map when
// the destination is nil, so decoding into a DefaultConfig-seeded struct
// would merge the file's entries into the defaults key-by-key instead of
// replacing them. replaceMapFieldsWholesale undoes that merge explicitly so
// a file's [url_map] replaces the default URL set entirely rather than
// probing it alongside the operator's own URLs (spec.md §6).
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := replaceMapFieldsWholesale(meta, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise starts from
// DefaultConfig. Environment overrides and validation are applied either
// way, since both setup actions and the worker actions need a fully
// resolved, validated Config even with no file on disk.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)

		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}

		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)

		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}

		return cfg, nil
	}

	return Load(path, logger)
}

// replaceMapFieldsWholesale re-decodes headers/url_map in isolation and
// overwrites cfg's corresponding field when the file defines that table,
// so the file's table wins wholesale rather than merging key-by-key
// against DefaultConfig's entries (spec.md §6, SPEC_FULL.md §4 item 3:
// "_map keys are exempted [from deep-merge] ... replaced wholesale rather
// than merged"). A table absent from the file leaves cfg's default
// untouched.
func replaceMapFieldsWholesale(meta toml.MetaData, data []byte, cfg *Config) error {
	if meta.IsDefined("headers") {
		var only struct {
			Headers map[string]string `toml:"headers"`
		}

		if _, err := toml.Decode(string(data), &only); err != nil {
			return err
		}

		cfg.Headers = only.Headers
	}

	if meta.IsDefined("url_map") {
		var only struct {
			URLMap map[string]string `toml:"url_map"`
		}

		if _, err := toml.Decode(string(data), &only); err != nil {
			return err
		}

		cfg.URLMap = only.URLMap
	}

	return nil
}
