package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/waltmon/walt/internal/backoff"
	"github.com/waltmon/walt/internal/broker"
	"github.com/waltmon/walt/internal/config"
	"github.com/waltmon/walt/internal/result"
	"github.com/waltmon/walt/internal/runner"
)

// Publisher is the subset of *kgo.Client the Producer needs, narrowed so
// tests can substitute an in-memory fake without standing up a broker.
type Publisher interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// connectPublisher is swapped out in tests to avoid dialing a real broker.
var connectPublisher = func(cfg config.KafkaConfig, timeout time.Duration) (Publisher, error) {
	return broker.NewProducerClient(cfg, timeout)
}

// Producer schedules probes against a rotating URL queue, evaluates each
// response's content against an optional pattern, and publishes a
// serialized Result to the message log (spec.md §4.5).
type Producer struct {
	cfg    config.Config
	logger *slog.Logger
	client *http.Client

	// runner is created fresh by every Run call so a Producer value can be
	// reused across repeated runs in tests.
	runner *runner.Runner
}

// New builds a Producer for cfg. The HTTP client and broker connection are
// acquired inside Run, scoped to that run's lifetime.
func New(cfg config.Config, logger *slog.Logger) *Producer {
	return &Producer{cfg: cfg, logger: logger}
}

// Run drives the Producer's main coroutine to completion (spec.md §4.5).
// It returns nil on graceful cancellation and a non-nil error only for
// conditions the caller should treat as startup failures.
func (p *Producer) Run(ctx context.Context) error {
	p.runner = runner.New(ctx, p.logger, "producer")

	return p.runner.Run(p.runAction)
}

// Counter reports the number of probe iterations completed this run, for
// observability (spec.md §4.3 IncrCounter). A probe whose publish failed is
// still counted.
func (p *Producer) Counter() int64 {
	if p.runner == nil {
		return 0
	}

	return p.runner.Counter()
}

func (p *Producer) runAction(ctx context.Context) error {
	if len(p.cfg.URLMap) == 0 {
		p.logger.Warn("producer: url_map is empty, nothing to probe")

		return nil
	}

	urlMap := CompileURLMap(p.cfg.URLMap, p.logger)

	timeout := time.Duration(p.cfg.Timeout) * time.Second

	var publisher Publisher

	err := backoff.Retry(ctx, p.logger, backoff.DefaultPolicy(time.Second), "kafka producer connect",
		func(ctx context.Context) error {
			conn, err := connectPublisher(p.cfg.Kafka, timeout)
			if err != nil {
				return err
			}

			publisher = conn

			return nil
		},
	)
	if err != nil {
		return fmt.Errorf("producer: connecting to broker: %w", err)
	}
	defer publisher.Close()

	p.client = &http.Client{} // per-request timeout is applied via context, not a blanket Client timeout

	queue := NewURLQueue(urlMap.URLs())

	for i := 1; i <= p.cfg.Concurrent; i++ {
		name := fmt.Sprintf("producer-%d", i)
		p.runner.Spawn(func(ctx context.Context) {
			p.worker(ctx, name, urlMap, queue, publisher)
		})
	}

	<-ctx.Done()

	return ctx.Err()
}

// worker implements one probe-fetch-publish-rotate cycle (spec.md §4.5,
// "Worker loop per task").
func (p *Producer) worker(ctx context.Context, name string, urlMap URLMap, queue *URLQueue, publisher Publisher) {
	for {
		target, err := queue.Pop(ctx)
		if err != nil {
			return
		}

		res := p.probe(ctx, target, urlMap.Pattern(target))

		p.publish(ctx, name, res, publisher)

		queue.Requeue(target)
		p.runner.IncrCounter()

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(p.cfg.Interval) * time.Second):
		}
	}
}

// probe performs one GET against target, enforcing the configured timeout
// on both the request and the body read, and evaluates pattern against the
// body on success.
func (p *Producer) probe(ctx context.Context, target string, pattern *regexp.Regexp) result.Result {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Timeout)*time.Second)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		p.logger.Error("producer: building request failed",
			slog.String("url", target), slog.String("error", err.Error()))

		return result.NewFailure(result.Error, target)
	}

	for k, v := range p.headers() {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.failureFromError(target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.failureFromError(target, err)
	}

	elapsed := time.Since(start).Seconds()

	verdict := result.NoPattern
	if pattern != nil {
		if pattern.Match(body) {
			verdict = result.Found
		} else {
			verdict = result.NotFound
		}
	}

	return result.NewSuccess(target, elapsed, resp.StatusCode, verdict)
}

// failureFromError classifies a probe failure per spec.md §4.5: deadline
// exceeded is checked first since it is the most specific condition (an
// http.Client timeout surfaces as a *url.Error wrapping
// context.DeadlineExceeded, which would otherwise also satisfy the
// network-error check below); any other net.Error or *url.Error is a
// CLIENT_ERROR; anything else is ERROR.
func (p *Producer) failureFromError(target string, err error) result.Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		p.logger.Error("producer: timeout", slog.String("url", target), slog.String("error", err.Error()))

		return result.NewFailure(result.TimeoutError, target)
	case isNetworkError(err):
		p.logger.Error("producer: client error", slog.String("url", target), slog.String("error", err.Error()))

		return result.NewFailure(result.ClientError, target)
	default:
		p.logger.Error("producer: unexpected error", slog.String("url", target), slog.String("error", err.Error()))

		return result.NewFailure(result.Error, target)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// headers builds the request header set: User-Agent first, then the
// configured headers table overlaid on top, so an explicit
// headers["User-Agent"] entry can override the default (spec.md §9 /
// SPEC_FULL.md §4 item 6, "the `_headers` merge").
func (p *Producer) headers() map[string]string {
	h := map[string]string{"User-Agent": p.cfg.UserAgent}
	for k, v := range p.cfg.Headers {
		h[k] = v
	}

	return h
}

func (p *Producer) publish(ctx context.Context, workerName string, res result.Result, publisher Publisher) {
	rec := &kgo.Record{Topic: p.cfg.Kafka.Topic, Value: result.Encode(res)}

	if err := publisher.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.logger.Error("producer: publish failed",
			slog.String("worker", workerName),
			slog.String("url", res.URL),
			slog.String("error", err.Error()),
		)
	}
}
