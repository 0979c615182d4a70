// Package config implements TOML configuration loading, environment
// variable overrides, and validation for walt (spec.md §6).
package config

// Config is the top-level configuration structure, decoded from TOML and
// then subject to environment variable overrides (see env.go).
type Config struct {
	LogLevel   string            `toml:"log_level"`
	Concurrent int               `toml:"concurrent"`
	Interval   int               `toml:"interval"`
	Timeout    int               `toml:"timeout"`
	UserAgent  string            `toml:"user_agent"`
	Headers    map[string]string `toml:"headers"`
	URLMap     map[string]string `toml:"url_map"`
	Kafka      KafkaConfig       `toml:"kafka"`
	Postgres   PostgresConfig    `toml:"postgres"`
}

// KafkaConfig holds the broker connection settings, including the optional
// mutual-TLS material shared by Producer and Consumer (spec.md §4.6).
type KafkaConfig struct {
	URI      string `toml:"uri"`
	Topic    string `toml:"topic"`
	CAFile   string `toml:"cafile"`
	CertFile string `toml:"certfile"`
	KeyFile  string `toml:"keyfile"`
}

// PostgresConfig holds the relational store connection settings consumed by
// internal/storage.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
}
