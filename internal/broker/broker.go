// Package broker wraps the franz-go Kafka client with the TLS and timeout
// conventions shared by the Producer and Consumer (spec.md §4.6, "one
// mixin" for building TLS options from the three cert paths).
package broker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/waltmon/walt/internal/config"
)

// tlsOpts builds the franz-go dial option implied by cfg's three cert
// paths. If all three are empty, no TLS option is returned (plaintext).
// Validate already rejects a partial set, so by the time this runs either
// all three are present or none are.
func tlsOpts(cfg config.KafkaConfig) ([]kgo.Opt, error) {
	if cfg.CAFile == "" && cfg.CertFile == "" && cfg.KeyFile == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("broker: loading client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("broker: reading CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("broker: no certificates found in %s", cfg.CAFile)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}

	return []kgo.Opt{kgo.DialTLSConfig(tlsConfig)}, nil
}

// NewProducerClient builds a client for publishing to cfg.Topic.
// timeout bounds every produce request round trip.
func NewProducerClient(cfg config.KafkaConfig, timeout time.Duration) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.URI),
		kgo.ProduceRequestTimeout(timeout),
		kgo.RecordDeliveryTimeout(timeout),
	}

	tls, err := tlsOpts(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, tls...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: creating producer client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("broker: pinging brokers: %w", err)
	}

	return client, nil
}

// NewConsumerClient builds a client subscribed to cfg.Topic under groupID.
// requestTimeout and retryBackoff mirror the original's
// request_timeout_ms/retry_backoff_ms consumer settings.
func NewConsumerClient(cfg config.KafkaConfig, groupID string, requestTimeout, retryBackoff time.Duration) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.URI),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(groupID),
		kgo.FetchMaxWait(requestTimeout),
		kgo.RetryBackoffFn(func(int) time.Duration { return retryBackoff }),
	}

	tls, err := tlsOpts(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, tls...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: creating consumer client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("broker: pinging brokers: %w", err)
	}

	return client, nil
}
