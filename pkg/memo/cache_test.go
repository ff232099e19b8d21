// ABOUTME: Tests for the memoizing cache
// ABOUTME: Checks single computation under contention and error/absence handling

package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	name string
}

func TestComputesOncePerKeyUnderContention(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cache := New(func(ctx context.Context, key string) (*widget, bool, error) {
		calls.Add(1)
		<-release
		return &widget{name: key}, true, nil
	})

	const callers = 32
	results := make([]*widget, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, ok, err := cache.Get(context.Background(), "P1")
			assert.NoError(t, err)
			assert.True(t, ok)
			results[i] = w
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, w := range results {
		assert.Same(t, results[0], w)
	}

	// later callers hit the stored value
	w, ok, err := cache.Get(context.Background(), "P1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, results[0], w)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	block := make(chan struct{})
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		if key == "slow" {
			<-block
		}
		return key, true, nil
	})
	defer close(block)

	go func() {
		_, _, _ = cache.Get(context.Background(), "slow")
	}()

	done := make(chan struct{})
	go func() {
		v, ok, err := cache.Get(context.Background(), "fast")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "fast", v)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fast key waited for slow key")
	}
}

func TestErrorsPropagateAndAreNotCached(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	cache := New(func(ctx context.Context, key int) (int, bool, error) {
		if calls.Add(1) == 1 {
			return 0, false, boom
		}
		return key * 2, true, nil
	})

	_, _, err := cache.Get(context.Background(), 21)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	v, ok, err := cache.Get(context.Background(), 21)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestConcurrentWaitersShareError(t *testing.T) {
	boom := errors.New("boom")
	release := make(chan struct{})
	var calls atomic.Int32
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		calls.Add(1)
		<-release
		return "", false, boom
	})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = cache.Get(context.Background(), "k")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestPanicBecomesError(t *testing.T) {
	var calls atomic.Int32
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		if calls.Add(1) == 1 {
			panic("constructor blew up")
		}
		return "ok", true, nil
	})

	_, ok, err := cache.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrPanicked)
	assert.Contains(t, err.Error(), "constructor blew up")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	v, ok, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestAbsentIsNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		calls.Add(1)
		return "", false, nil
	})

	for i := 0; i < 3; i++ {
		_, ok, err := cache.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, cache.Len())

	_, ok := cache.Peek("missing")
	assert.False(t, ok)
}

type dateKey struct {
	id  string
	day int
}

func (k dateKey) String() string {
	return fmt.Sprintf("%s@%d", k.id, k.day)
}

func TestKeyFormatting(t *testing.T) {
	cache := New(func(ctx context.Context, key dateKey) (string, bool, error) {
		return key.String(), true, nil
	})
	_, _, err := cache.Get(context.Background(), dateKey{id: "P", day: 3})
	require.NoError(t, err)

	v, ok := cache.Peek(dateKey{id: "P", day: 3})
	require.True(t, ok)
	assert.Equal(t, "P@3", v)

	custom := New(func(ctx context.Context, key int) (int, bool, error) {
		return key, true, nil
	}, WithKeyFunc(func(k int) string { return fmt.Sprint(k % 10) }))

	v1, _, _ := custom.Get(context.Background(), 3)
	v2, _, _ := custom.Get(context.Background(), 13)
	assert.Equal(t, 3, v1)
	assert.Equal(t, 3, v2, "13 collapses onto 3 under the custom key")
}

func TestRange(t *testing.T) {
	cache := New(func(ctx context.Context, key string) (int, bool, error) {
		return len(key), true, nil
	})
	for _, k := range []string{"a", "bb", "ccc"} {
		_, _, err := cache.Get(context.Background(), k)
		require.NoError(t, err)
	}

	seen := map[string]int{}
	cache.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[string]int{"a": 1, "bb": 2, "ccc": 3}, seen)
}

type countingObserver struct {
	hits, misses, computes atomic.Int32
}

func (o *countingObserver) OnHit(string)  { o.hits.Add(1) }
func (o *countingObserver) OnMiss(string) { o.misses.Add(1) }
func (o *countingObserver) OnCompute(string, time.Duration, bool, error) {
	o.computes.Add(1)
}

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		return key, true, nil
	}, WithObserver[string](obs))

	for i := 0; i < 3; i++ {
		_, _, err := cache.Get(context.Background(), "x")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), obs.misses.Load())
	assert.Equal(t, int32(1), obs.computes.Load())
	assert.Equal(t, int32(2), obs.hits.Load())
}

func TestCallerCancellationDoesNotPoisonKey(t *testing.T) {
	release := make(chan struct{})
	cache := New(func(ctx context.Context, key string) (string, bool, error) {
		<-release
		return "done", true, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, ok, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "done", v)
}
