package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/semver"
)

func TestNewKey(t *testing.T) {
	a := NewKey("Foo", semver.MustParseRange("1.2.0"), framework.Parse("net45"), "Debug")
	b := NewKey("foo", semver.MustParseRange("1.2.0"), framework.Parse(".NETFramework,Version=v4.5"), "Debug")
	assert.Equal(t, a, b)
	assert.Equal(t, "foo@1.2.0|net45|Debug", a.String())

	assert.NotEqual(t, a, NewKey("Foo", nil, framework.Parse("net45"), "Debug"))
	assert.NotEqual(t, a, NewKey("Foo", semver.MustParseRange("1.2.0"), framework.Parse("net45"), "Release"))
	assert.NotEqual(t, a, NewKey("Foo", semver.MustParseRange("1.2.0"), framework.Parse("aspnet50"), "Debug"))
}

func TestGetMemoizes(t *testing.T) {
	c := New[string]()
	key := Key{Name: "foo"}
	calls := 0
	fill := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Get(context.Background(), key, fill)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, Stats{Hits: 2, Misses: 1, Fills: 1}, c.Stats())

	v, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestGetErrorsAreNotCached(t *testing.T) {
	c := New[int]()
	key := Key{Name: "flaky"}
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), key, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	got, err := c.Get(context.Background(), key, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, uint64(1), c.Stats().Errors)
}

func TestGetSharesConcurrentFill(t *testing.T) {
	c := New[*int]()
	key := Key{Name: "shared"}

	var calls atomic.Int32
	release := make(chan struct{})
	fill := func(context.Context) (*int, error) {
		calls.Add(1)
		<-release
		v := 42
		return &v, nil
	}

	const callers = 16
	results := make([]*int, callers)
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			v, err := c.Get(context.Background(), key, fill)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	started.Wait()
	// Give every caller time to join the in-flight fill.
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r, "every caller sees the one published value")
	}
}

func TestGetWaiterCancellation(t *testing.T) {
	c := New[string]()
	key := Key{Name: "slow"}
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = c.Get(context.Background(), key, func(context.Context) (string, error) {
			<-release
			return "late", nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, key, func(context.Context) (string, error) {
		return "unused", nil
	})
	// Either the waiter joined the slow fill and gave up, or it ran its own fill
	// before the first goroutine started.
	if err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestGetOutlivesCanceledStarter(t *testing.T) {
	c := New[string]()
	key := Key{Name: "abandoned"}

	startCtx, cancelStart := context.WithCancel(context.Background())
	filling := make(chan struct{})
	starterDone := make(chan error, 1)
	go func() {
		_, err := c.Get(startCtx, key, func(ctx context.Context) (string, error) {
			close(filling)
			<-ctx.Done()
			return "", ctx.Err()
		})
		starterDone <- err
	}()
	<-filling

	waiterDone := make(chan struct{})
	var (
		got string
		err error
	)
	go func() {
		defer close(waiterDone)
		got, err = c.Get(context.Background(), key, func(context.Context) (string, error) {
			return "fresh", nil
		})
	}()
	// Let the waiter join the in-flight fill before its starter gives up.
	time.Sleep(20 * time.Millisecond)
	cancelStart()

	assert.ErrorIs(t, <-starterDone, context.Canceled)
	<-waiterDone
	require.NoError(t, err, "a live waiter does not inherit another caller's cancellation")
	assert.Equal(t, "fresh", got)

	v, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestPublishFirstWriterWins(t *testing.T) {
	c := New[string]()
	key := Key{Name: "race"}
	assert.Equal(t, "first", c.publish(key, "first"))
	assert.Equal(t, "first", c.publish(key, "second"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	c := New[int](WithMetrics(m, "library"))
	key := Key{Name: "foo"}
	_, _ = c.Get(context.Background(), key, func(context.Context) (int, error) { return 0, errors.New("no") })
	_, _ = c.Get(context.Background(), key, func(context.Context) (int, error) { return 1, nil })
	_, _ = c.Get(context.Background(), key, func(context.Context) (int, error) { return 2, nil })

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("library", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("library", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fillErrors.WithLabelValues("library")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")
}
