package consumer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/waltmon/walt/internal/config"
	"github.com/waltmon/walt/internal/result"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSubscriber delivers a fixed batch of records once, then blocks until
// ctx is cancelled, mirroring a real broker with no further messages.
type fakeSubscriber struct {
	mu       sync.Mutex
	batches  [][]byte
	sent     int
	closed   bool
	pollHook func()
}

func (f *fakeSubscriber) PollFetches(ctx context.Context) kgo.Fetches {
	f.mu.Lock()
	if f.sent < len(f.batches) {
		value := f.batches[f.sent]
		f.sent++
		f.mu.Unlock()

		if f.pollHook != nil {
			f.pollHook()
		}

		return fetchesWithRecord(value)
	}
	f.mu.Unlock()

	<-ctx.Done()

	return kgo.Fetches{}
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

// fetchesWithRecord builds a kgo.Fetches containing exactly one record
// with the given value. franz-go's Fetches is a slice of FetchTopic-bearing
// structs; constructing one directly keeps the test free of a live broker.
func fetchesWithRecord(value []byte) kgo.Fetches {
	rec := &kgo.Record{Value: value}

	return kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "walt-test",
			Partitions: []kgo.FetchPartition{{
				Partition: 0,
				Records:   []*kgo.Record{rec},
			}},
		}},
	}}
}

// fakeSink is an in-memory storage.Sink used to assert what the Consumer
// hands off, following the pack's fake-collaborator testing pattern.
type fakeSink struct {
	mu        sync.Mutex
	connected bool
	saved     []result.Result
}

func (f *fakeSink) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = true

	return nil
}

func (f *fakeSink) Save(_ context.Context, r result.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saved = append(f.saved, r)
}

func (f *fakeSink) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = false
}

func (f *fakeSink) snapshot() []result.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]result.Result, len(f.saved))
	copy(out, f.saved)

	return out
}

func withFakeSubscriber(t *testing.T, fs *fakeSubscriber) {
	t.Helper()

	orig := connectSubscriber
	connectSubscriber = func(config.KafkaConfig, time.Duration, time.Duration) (Subscriber, error) {
		return fs, nil
	}
	t.Cleanup(func() { connectSubscriber = orig })
}

func baseConfig() config.Config {
	return config.Config{
		Interval: 0,
		Timeout:  5,
		Kafka:    config.KafkaConfig{URI: "unused", Topic: "walt-test"},
	}
}

// TestConsumer_DecodesAndSaves exercises spec.md §8 scenario 6: a single
// well-formed message results in exactly one sink.Save call with the
// decoded Result.
func TestConsumer_DecodesAndSaves(t *testing.T) {
	t.Parallel()

	encoded := []byte("1\nwow.web\n0.359\n200\n2\n719")

	fs := &fakeSubscriber{batches: [][]byte{encoded}}
	withFakeSubscriber(t, fs)

	sink := &fakeSink{}
	c := New(baseConfig(), sink, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.True(t, sink.connected, "sink is connected while messages are being saved")
	sink.mu.Unlock()

	cancel()
	require.NoError(t, <-done)

	saved := sink.snapshot()
	require.Len(t, saved, 1)

	r := saved[0]
	assert.Equal(t, result.Success, r.ResultType)
	assert.Equal(t, "wow.web", r.URL)
	assert.InDelta(t, 0.359, r.ResponseTime, 0.0001)
	assert.Equal(t, 200, r.StatusCode)
	assert.Equal(t, result.NoPattern, r.Pattern)
	assert.Equal(t, int64(719), r.UTCTimestampMs)
	assert.Equal(t, int64(1), c.Counter())
}

// TestConsumer_DecodeFailureIsSkipped asserts a malformed message is logged
// and skipped rather than saved or fatal (spec.md §7).
func TestConsumer_DecodeFailureIsSkipped(t *testing.T) {
	t.Parallel()

	malformed := []byte("not\nenough\nfields")
	valid := []byte("1\nok.web\n0.1\n200\n2\n5")

	fs := &fakeSubscriber{batches: [][]byte{malformed, valid}}
	withFakeSubscriber(t, fs)

	sink := &fakeSink{}
	c := New(baseConfig(), sink, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	saved := sink.snapshot()
	require.Len(t, saved, 1)
	assert.Equal(t, "ok.web", saved[0].URL)
}

// TestConsumer_DisconnectsOnShutdown asserts the sink is connected on
// startup and disconnected once the run ends.
func TestConsumer_DisconnectsOnShutdown(t *testing.T) {
	t.Parallel()

	fs := &fakeSubscriber{}
	withFakeSubscriber(t, fs)

	sink := &fakeSink{}
	c := New(baseConfig(), sink, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()

		return sink.connected
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.False(t, sink.connected)
	assert.True(t, fs.closed)
}
