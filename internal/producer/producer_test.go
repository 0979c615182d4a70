package producer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/waltmon/walt/internal/config"
	"github.com/waltmon/walt/internal/result"
)

// fakePublisher is an in-memory stand-in for the broker client, following
// the pack's "inject a fake transport" testing pattern.
type fakePublisher struct {
	mu      sync.Mutex
	records []result.Result
	closed  bool
}

func (f *fakePublisher) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	results := make(kgo.ProduceResults, 0, len(rs))

	for _, r := range rs {
		decoded, err := result.Decode(r.Value)
		if err == nil {
			f.records = append(f.records, decoded)
		}

		results = append(results, kgo.ProduceResult{Record: r})
	}

	return results
}

func (f *fakePublisher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

func (f *fakePublisher) snapshot() []result.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]result.Result, len(f.records))
	copy(out, f.records)

	return out
}

func withFakePublisher(t *testing.T, fp *fakePublisher) {
	t.Helper()

	orig := connectPublisher
	connectPublisher = func(config.KafkaConfig, time.Duration) (Publisher, error) {
		return fp, nil
	}
	t.Cleanup(func() { connectPublisher = orig })
}

func baseConfig(urlMap map[string]string) config.Config {
	return config.Config{
		Concurrent: 1,
		Interval:   0,
		Timeout:    5,
		UserAgent:  "walt-test",
		URLMap:     urlMap,
		Kafka:      config.KafkaConfig{URI: "unused", Topic: "walt-test"},
	}
}

func TestProducer_EmptyURLMapReturnsWithoutConnecting(t *testing.T) {
	t.Parallel()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	p := New(baseConfig(nil), discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp.snapshot())
	assert.False(t, fp.closed, "connectPublisher should never have been called")
}

func TestProducer_PublishesSuccessResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("foo"))
	}))
	defer srv.Close()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	cfg := baseConfig(map[string]string{srv.URL: ""})
	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fp.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	records := fp.snapshot()
	require.NotEmpty(t, records)

	r := records[0]
	assert.Equal(t, result.Success, r.ResultType)
	assert.Equal(t, srv.URL, r.URL)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, result.NoPattern, r.Pattern)
	assert.Greater(t, r.ResponseTime, 0.0)
	assert.Greater(t, r.UTCTimestampMs, int64(0))
}

func TestProducer_PatternMatchYieldsFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("the quickbrown fox"))
	}))
	defer srv.Close()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	cfg := baseConfig(map[string]string{srv.URL: `\w{10,}`})
	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fp.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, result.Found, fp.snapshot()[0].Pattern)
}

func TestProducer_PatternMismatchYieldsNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("short words only"))
	}))
	defer srv.Close()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	cfg := baseConfig(map[string]string{srv.URL: `\w{10,}`})
	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fp.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, result.NotFound, fp.snapshot()[0].Pattern)
}

func TestProducer_NetworkFailureYieldsClientError(t *testing.T) {
	t.Parallel()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	// Port 1 on loopback, where nothing listens, triggers a connection error
	// synchronously, deterministically, with no server to run.
	unreachable := "http://127.0.0.1:1"

	cfg := baseConfig(map[string]string{unreachable: ""})
	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fp.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	r := fp.snapshot()[0]
	assert.Equal(t, result.ClientError, r.ResultType)
	assert.Equal(t, 0.0, r.ResponseTime)
	assert.Equal(t, 0, r.StatusCode)
	assert.Equal(t, result.Irrelevant, r.Pattern)
}

func TestProducer_TimeoutYieldsTimeoutError(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	defer close(blocked)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Also return once the client gives up, so the deferred srv.Close
		// (which runs before close(blocked)) does not wait on this handler.
		select {
		case <-blocked:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	cfg := baseConfig(map[string]string{srv.URL: ""})
	cfg.Timeout = 1 // second; the per-request context deadline path
	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fp.snapshot()) > 0 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	r := fp.snapshot()[0]
	assert.Equal(t, result.TimeoutError, r.ResultType)
	assert.Equal(t, 0.0, r.ResponseTime)
}

func TestProducer_SpawnsConfiguredWorkerCount(t *testing.T) {
	t.Parallel()

	// Each request is held until three are in flight at once, which only
	// three concurrently running workers can bring about.
	var inFlight atomic.Int32
	var releaseOnce sync.Once
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight.Add(1) >= 3 {
			releaseOnce.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	fp := &fakePublisher{}
	withFakePublisher(t, fp)

	cfg := baseConfig(map[string]string{
		srv.URL + "/1": "",
		srv.URL + "/2": "",
		srv.URL + "/3": "",
	})
	cfg.Concurrent = 3
	cfg.Interval = 0

	p := New(cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.Counter() >= 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
