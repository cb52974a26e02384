package counter

import (
	"context"
	"net"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gogotex/gateway/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestStore_IncrIsSequential(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	store := NewStore(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
	require.Equal(t, DefaultKey, store.Key())

	ctx := context.Background()
	for want := int64(1); want <= 5; want++ {
		res := store.Incr(ctx)
		require.True(t, res.OK())
		require.Equal(t, want, res.Value)
	}

	got, err := m.Get(DefaultKey)
	require.NoError(t, err)
	require.Equal(t, "5", got)
}

func TestStore_IncrContinuesFromExistingValue(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Set("score", "41"))

	store := NewStore(redis.NewClient(&redis.Options{Addr: m.Addr()}), "score")
	res := store.Incr(context.Background())
	require.True(t, res.OK())
	require.Equal(t, int64(42), res.Value)
}

func TestStore_IncrReportsUnavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	store := NewStore(client, "")
	res := store.Incr(context.Background())
	require.False(t, res.OK())
	require.Equal(t, ReasonUnavailable, res.Reason)
	require.Error(t, res.Err)
	require.Error(t, store.Ping(context.Background()))
}

func TestStore_NonIntegerValue(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Set(DefaultKey, "not-a-number"))

	store := NewStore(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
	res := store.Incr(context.Background())
	require.False(t, res.OK())
	require.Equal(t, ReasonUnavailable, res.Reason)
}

func TestStore_NilClient(t *testing.T) {
	store := NewStore(nil, "")
	res := store.Incr(context.Background())
	require.False(t, res.OK())
	require.ErrorIs(t, store.Ping(context.Background()), errNoClient)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2", 0)
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", c.Options().Addr)
	require.Equal(t, 2, c.Options().DB)

	_, err = NewClient("http://not-redis", 0)
	require.Error(t, err)
}

func TestNewClientAppliesTimeout(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/0", 750*time.Millisecond)
	require.NoError(t, err)
	opts := c.Options()
	require.Equal(t, 750*time.Millisecond, opts.DialTimeout)
	require.Equal(t, 750*time.Millisecond, opts.ReadTimeout)
	require.Equal(t, 750*time.Millisecond, opts.WriteTimeout)
}

func TestStore_UnresponsiveHostFailsWithinTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	// accept and never answer
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	client, err := NewClient("redis://"+ln.Addr().String()+"/0", 100*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	res := NewStore(client, "").Incr(context.Background())
	require.False(t, res.OK())
	require.Equal(t, ReasonUnavailable, res.Reason)
	require.Less(t, time.Since(start), 2*time.Second)
}

func redisIncrCount(outcome string) float64 {
	return testutil.ToFloat64(metrics.BackendRequests.WithLabelValues("redis", "incr", outcome))
}

func TestStore_RecordsBackendOutcomes(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	store := NewStore(client, "")

	okBefore := redisIncrCount(metrics.OutcomeOK)
	require.True(t, store.Incr(context.Background()).OK())
	require.Equal(t, okBefore+1, redisIncrCount(metrics.OutcomeOK))

	m.Close()
	errBefore := redisIncrCount(metrics.OutcomeError)
	require.False(t, store.Incr(context.Background()).OK())
	require.Equal(t, errBefore+1, redisIncrCount(metrics.OutcomeError))
}
