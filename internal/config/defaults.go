package config

// DefaultConfig returns the built-in configuration: the same values the
// original walt ships as its module-level CONFIG dict, used both as the
// baseline merged under a loaded TOML file and as the body written out by
// the generate_config_sample action.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "INFO",
		Concurrent: 2,
		Interval:   2,
		Timeout:    30,
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.88 Safari/537.36",
		Headers: map[string]string{
			"Pragma": "no-cache",
		},
		URLMap: map[string]string{
			"https://example.com":    "Example Domain",
			"https://www.iana.org":   "",
			"https://www.python.org": "Python",
		},
		Kafka: KafkaConfig{
			URI:      "localhost:9092",
			Topic:    "walt",
			CAFile:   "",
			CertFile: "",
			KeyFile:  "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "mysecretpassword",
			DBName:   "walt",
		},
	}
}
