package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)} }

// exerciseBucket runs the capacity/refill scenario against any backend.
func exerciseBucket(t *testing.T, lim Limiter, clk *clock) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := lim.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 10, d.Limit)
		assert.Equal(t, 9-i, d.Remaining)
	}

	d, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "11th request must be rejected")
	assert.Equal(t, 6*time.Second, d.RetryAfter)

	// other clients have their own bucket
	d, err = lim.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// continuous refill: one token every 6s
	clk.Advance(6*time.Second + time.Millisecond)
	d, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	clk.Advance(time.Minute)
	for i := 0; i < 10; i++ {
		d, err := lim.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d after refill should pass", i+1)
	}
	d, err = lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMemoryLimiter_Bucket(t *testing.T) {
	clk := newClock()
	exerciseBucket(t, NewMemoryLimiter(DefaultPolicy, 0, clk.Now), clk)
}

func TestMemoryLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	clk := newClock()
	lim := NewMemoryLimiter(Policy{Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour}, 2, clk.Now)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		d, _ := lim.Allow(ctx, k)
		require.True(t, d.Allowed)
	}
	d, _ := lim.Allow(ctx, "a") // touches a, b is now oldest
	require.False(t, d.Allowed)

	_, _ = lim.Allow(ctx, "c")
	assert.Equal(t, 2, lim.Len())

	// a survived eviction and is still empty
	d, _ = lim.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	// b was evicted and starts full
	d, _ = lim.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_ConcurrentConsumeHasNoLostUpdates(t *testing.T) {
	clk := newClock()
	lim := NewMemoryLimiter(DefaultPolicy, 0, clk.Now)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if d, _ := lim.Allow(context.Background(), "shared"); d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.EqualValues(t, 10, allowed.Load())
}

func newRedisLimiter(t *testing.T, clk *clock) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb, DefaultPolicy, "rl-test", 0, clk.Now), mr
}

func TestRedisLimiter_Bucket(t *testing.T) {
	clk := newClock()
	lim, _ := newRedisLimiter(t, clk)
	exerciseBucket(t, lim, clk)
}

func TestRedisLimiter_KeyExpires(t *testing.T) {
	clk := newClock()
	lim, mr := newRedisLimiter(t, clk)

	_, err := lim.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, mr.Exists("rl-test:1.2.3.4"))
	assert.Equal(t, time.Minute, mr.TTL("rl-test:1.2.3.4"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("rl-test:1.2.3.4"))
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	clk := newClock()
	lim, mr := newRedisLimiter(t, clk)
	mr.Close()

	_, err := lim.Allow(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratelimit script")
}

func TestPolicy_Normalized(t *testing.T) {
	p := Policy{}.normalized()
	assert.Equal(t, Policy{Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute}, p)
	assert.Equal(t, 6*time.Second, DefaultPolicy.tokenInterval())
	assert.Equal(t, "6s", fmt.Sprint(DefaultPolicy.tokenInterval()))
}
