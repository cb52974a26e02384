package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gateway/pkg/logger"
	"github.com/gogotex/gateway/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key incremented by the point endpoint.
const DefaultKey = "points"

// ReasonUnavailable is reported for any failure talking to Redis.
const ReasonUnavailable = "redis unavailable"

var errNoClient = errors.New("counter store has no redis client")

// Result is the outcome of an increment: either a Value, or a Reason with the
// underlying Err. Callers decide how to surface a failure.
type Result struct {
	Value  int64
	Reason string
	Err    error
}

// OK reports whether the increment landed.
func (r Result) OK() bool { return r.Err == nil }

// Store increments a single counter held in Redis.
type Store struct {
	client *redis.Client
	key    string
}

// NewClient builds a Redis client from a redis:// or rediss:// URL.
// A positive timeout bounds dialing and each read and write, so an unanswering
// host turns into a failure instead of a stall. No connection is made until
// the first command.
func NewClient(rawURL string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
		opts.PoolTimeout = timeout
	}
	return redis.NewClient(opts), nil
}

// NewStore creates a counter store. An empty key falls back to DefaultKey.
func NewStore(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

func (s *Store) Key() string { return s.key }

// Incr atomically increments the counter and returns its new value.
// Failures are logged here and returned as a Result, never as a panic or error value.
func (s *Store) Incr(ctx context.Context) Result {
	if s.client == nil {
		return s.fail(errNoClient)
	}
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return s.fail(err)
	}
	metrics.ObserveBackend("redis", "incr", metrics.OutcomeOK)
	return Result{Value: n}
}

func (s *Store) fail(err error) Result {
	log := logger.Component("counter")
	log.Error().Err(err).Str("key", s.key).Msg("redis increment failed")
	metrics.ObserveBackend("redis", "incr", metrics.OutcomeError)
	return Result{Reason: ReasonUnavailable, Err: err}
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	return s.client.Ping(ctx).Err()
}
