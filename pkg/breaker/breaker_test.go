package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

func testConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.MinRequests = 3
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestBreaker_PassesThroughResult(t *testing.T) {
	b := New(testConfig("pass"), nil, nil)

	assert.NoError(t, b.Do(context.Background(), fail(nil)))
	assert.ErrorIs(t, b.Do(context.Background(), fail(errMissing)), errMissing)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_TripsAndRecovers(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	b := New(testConfig("s3"), metrics, nil)
	boom := errors.New("connection reset")

	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), fail(boom))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.state.WithLabelValues("s3")))

	called := false
	err := b.Do(context.Background(), func(context.Context) error { called = true; return nil })
	assert.True(t, IsOpen(err))
	assert.False(t, called)

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, b.Do(context.Background(), fail(nil)))
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.state.WithLabelValues("s3")))
}

func TestBreaker_IsSuccessfulExcludesExpectedErrors(t *testing.T) {
	cfg := testConfig("not-found-tolerant")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errMissing) }
	b := New(cfg, nil, nil)

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, b.Do(context.Background(), fail(errMissing)), errMissing)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_CanceledContext(t *testing.T) {
	b := New(testConfig("ctx"), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
