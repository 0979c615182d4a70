// Package consumer subscribes to the message log, decodes each Result, and
// forwards it to the storage sink (spec.md §4.6).
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/waltmon/walt/internal/backoff"
	"github.com/waltmon/walt/internal/broker"
	"github.com/waltmon/walt/internal/config"
	"github.com/waltmon/walt/internal/result"
	"github.com/waltmon/walt/internal/runner"
	"github.com/waltmon/walt/internal/storage"
)

// groupID is the consumer group the Consumer joins. Fixed rather than
// configurable: spec.md's configuration surface names no such key, and a
// single Consumer process is the assumed topology (spec.md §1).
const groupID = "walt-consumer"

// Subscriber is the subset of *kgo.Client the Consumer needs, narrowed so
// tests can substitute an in-memory fake.
type Subscriber interface {
	PollFetches(ctx context.Context) kgo.Fetches
	Close()
}

// connectSubscriber is swapped out in tests to avoid dialing a real broker.
var connectSubscriber = func(cfg config.KafkaConfig, requestTimeout, retryBackoff time.Duration) (Subscriber, error) {
	return broker.NewConsumerClient(cfg, groupID, requestTimeout, retryBackoff)
}

// Consumer subscribes to cfg.Kafka.Topic, decodes each delivered message,
// and hands the Result to sink.Save (spec.md §4.6).
type Consumer struct {
	cfg    config.Config
	sink   storage.Sink
	logger *slog.Logger

	runner *runner.Runner
}

// New builds a Consumer for cfg, persisting to sink.
func New(cfg config.Config, sink storage.Sink, logger *slog.Logger) *Consumer {
	return &Consumer{cfg: cfg, sink: sink, logger: logger}
}

// Run drives the Consumer's main coroutine to completion (spec.md §4.6).
func (c *Consumer) Run(ctx context.Context) error {
	c.runner = runner.New(ctx, c.logger, "consumer")

	return c.runner.Run(c.runAction)
}

// Counter reports the number of messages consumed this run.
func (c *Consumer) Counter() int64 {
	if c.runner == nil {
		return 0
	}

	return c.runner.Counter()
}

func (c *Consumer) runAction(ctx context.Context) error {
	if err := c.sink.Connect(ctx); err != nil {
		return fmt.Errorf("consumer: connecting storage sink: %w", err)
	}
	defer c.sink.Disconnect(ctx)

	requestTimeout := time.Duration(c.cfg.Timeout) * time.Second
	retryBackoff := time.Duration(c.cfg.Interval) * time.Second

	var sub Subscriber

	err := backoff.Retry(ctx, c.logger, backoff.DefaultPolicy(time.Second), "kafka consumer connect",
		func(ctx context.Context) error {
			conn, err := connectSubscriber(c.cfg.Kafka, requestTimeout, retryBackoff)
			if err != nil {
				return err
			}

			sub = conn

			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("consumer: connecting to broker: %w", err)
	}
	defer sub.Close()

	for ctx.Err() == nil {
		fetches := sub.PollFetches(ctx)
		if ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("consumer: fetch error",
				slog.String("topic", topic), slog.Int("partition", int(partition)), slog.String("error", err.Error()))
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			c.handleRecord(ctx, rec)
		})
	}

	c.logger.Info("consumer: summary", slog.Int64("messages_consumed", c.Counter()))

	return ctx.Err()
}

func (c *Consumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	res, err := result.Decode(rec.Value)
	if err != nil {
		c.logger.Error("consumer: decode failed", slog.String("error", err.Error()))

		return
	}

	c.sink.Save(ctx, res)
	c.runner.IncrCounter()
}
