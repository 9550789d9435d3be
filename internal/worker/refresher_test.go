package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/funnel-monitor/internal/pkg/distlock"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

type countingRefresher struct {
	calls int64
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) (*dashboard.View, error) {
	n := atomic.AddInt64(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	return &dashboard.View{Generation: uint64(n)}, nil
}

func newRedisLock(t *testing.T, key string) (*distlock.RedisLock, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return distlock.NewRedisLock(client, key, time.Minute), client
}

func TestRunOnce_WithoutLock(t *testing.T) {
	r := &countingRefresher{}
	w := NewRefreshWorker(r, nil, time.Minute)

	w.RunOnce(context.Background())
	assert.Equal(t, int64(1), atomic.LoadInt64(&r.calls))
	assert.Equal(t, RefreshStats{Runs: 1}, w.Stats())
}

func TestRunOnce_SkipsWhenLockHeldElsewhere(t *testing.T) {
	lock, client := newRedisLock(t, "funnel-refresh")
	other := distlock.NewRedisLock(client, "funnel-refresh", time.Minute)
	ok, err := other.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	r := &countingRefresher{}
	w := NewRefreshWorker(r, lock, time.Minute)
	w.RunOnce(context.Background())

	assert.Equal(t, int64(0), atomic.LoadInt64(&r.calls))
	assert.Equal(t, RefreshStats{Skipped: 1}, w.Stats())
}

func TestRunOnce_ReleasesLock(t *testing.T) {
	lock, client := newRedisLock(t, "funnel-refresh")
	r := &countingRefresher{}
	w := NewRefreshWorker(r, lock, time.Minute)

	w.RunOnce(context.Background())
	w.RunOnce(context.Background())
	assert.Equal(t, int64(2), atomic.LoadInt64(&r.calls))

	other := distlock.NewRedisLock(client, "funnel-refresh", time.Minute)
	ok, err := other.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "lock is free after the cycle")
}

func TestRunOnce_CountsFailures(t *testing.T) {
	r := &countingRefresher{err: errors.New("db down")}
	w := NewRefreshWorker(r, nil, time.Minute)

	w.RunOnce(context.Background())
	assert.Equal(t, RefreshStats{Failures: 1}, w.Stats())
}

func TestStartStop(t *testing.T) {
	r := &countingRefresher{}
	w := NewRefreshWorker(r, nil, 10*time.Millisecond)

	require.NoError(t, w.Start())
	assert.True(t, w.Running())
	assert.Error(t, w.Start(), "second start is rejected")

	assert.Eventually(t, func() bool { return atomic.LoadInt64(&r.calls) >= 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.False(t, w.Running())
	calls := atomic.LoadInt64(&r.calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt64(&r.calls), "no refresh after stop")

	w.Stop()
}
