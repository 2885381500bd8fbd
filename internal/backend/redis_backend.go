// Package backend implements the Redis result backend: result storage via
// SET/GET and notification via PUBLISH/SUBSCRIBE with a subscribe-before-get
// race-safe Get. Built on go-redis's UniversalClient so single-node,
// Sentinel and Cluster topologies share one code path.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/metrics"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

// defaultExpiry is the default result TTL: one day.
const defaultExpiry = 86400 * time.Second

// RedisBackend stores and notifies task results over a go-redis
// UniversalClient, which transparently covers single-node, Sentinel and
// Cluster topologies (TCP or Unix socket).
type RedisBackend struct {
	client    redis.UniversalClient
	keyPrefix string
	expiry    time.Duration
	metrics   *metrics.Metrics
}

// RedisBackendOptions configures the key prefix and result TTL; zero
// values default to "celery-task-meta-" and 86400s.
type RedisBackendOptions struct {
	KeyPrefix string
	Expiry    time.Duration
	Metrics   *metrics.Metrics
}

// NewRedisBackend wraps an already-constructed UniversalClient (built by
// the caller via redis.NewClient/NewFailoverClient/NewClusterClient
// depending on the parsed URI scheme — see NewUniversalClient).
func NewRedisBackend(client redis.UniversalClient, opts RedisBackendOptions) *RedisBackend {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "celery-task-meta-"
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &RedisBackend{client: client, keyPrefix: prefix, expiry: expiry, metrics: opts.Metrics}
}

func (b *RedisBackend) key(taskID string) string {
	return b.keyPrefix + taskID
}

// Get races a GET against a SUBSCRIBE, subscribing first so a producer
// that SETs then PUBLISHes between our GET and our SUBSCRIBE can never be
// missed.
func (b *RedisBackend) Get(ctx context.Context, taskID string, timeout time.Duration) (tasks.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := b.key(taskID)
	sub := b.client.Subscribe(ctx, key)
	defer sub.Close()

	// Receive first to confirm the subscription is live, then hand the
	// connection to Channel's reader goroutine; the two must not run
	// concurrently on one PubSub.
	if _, err := sub.Receive(ctx); err != nil {
		b.metrics.ObserveBackendGet("redis", "failure")
		return tasks.Result{}, fmt.Errorf("redis backend: subscribe: %w", err)
	}
	ready := sub.Channel()

	val, err := b.client.Get(ctx, key).Result()
	if err == nil {
		b.metrics.ObserveBackendGet("redis", "success")
		return decodeResult([]byte(val))
	}
	if err != redis.Nil {
		b.metrics.ObserveBackendGet("redis", "failure")
		return tasks.Result{}, fmt.Errorf("redis backend: get: %w", err)
	}

	select {
	case msg, ok := <-ready:
		if !ok {
			b.metrics.ObserveBackendGet("redis", "failure")
			return tasks.Result{}, errs.NewDisconnectedError("subscription closed")
		}
		b.metrics.ObserveBackendGet("redis", "success")
		return decodeResult([]byte(msg.Payload))
	case <-ctx.Done():
		b.metrics.ObserveBackendGet("redis", "timeout")
		if ctx.Err() == context.DeadlineExceeded {
			return tasks.Result{}, errs.NewTimeoutError(timeout.String())
		}
		return tasks.Result{}, ctx.Err()
	}
}

func decodeResult(raw []byte) (tasks.Result, error) {
	var result tasks.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return tasks.Result{}, fmt.Errorf("redis backend: decode result: %w", err)
	}
	return result, nil
}

// Put SETs the JSON-encoded result with the backend's expiry, then
// PUBLISHes the same payload.
func (b *RedisBackend) Put(ctx context.Context, result tasks.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis backend: marshal result: %w", err)
	}
	key := b.key(result.TaskID)
	if err := b.client.Set(ctx, key, body, b.expiry).Err(); err != nil {
		b.metrics.ObserveBackendPut("redis", "failure")
		return fmt.Errorf("redis backend: set: %w", err)
	}
	if err := b.client.Publish(ctx, key, body).Err(); err != nil {
		b.metrics.ObserveBackendPut("redis", "failure")
		return fmt.Errorf("redis backend: publish: %w", err)
	}
	b.metrics.ObserveBackendPut("redis", "success")
	return nil
}

// Delete removes the stored result, returning the driver reply as a
// string ("1" on hit, "0" on miss).
func (b *RedisBackend) Delete(ctx context.Context, taskID string) (string, error) {
	n, err := b.client.Del(ctx, b.key(taskID)).Result()
	if err != nil {
		return "", fmt.Errorf("redis backend: del: %w", err)
	}
	return fmt.Sprintf("%d", n), nil
}

// URI is unimplemented: the backend is constructed from an already-built
// UniversalClient, not a single reversible connection string (Cluster and
// Sentinel fan out to several addresses).
func (b *RedisBackend) URI() (string, error) {
	return "", errs.NewUnimplementedError("RedisBackend.URI")
}

// End closes the underlying client.
func (b *RedisBackend) End(ctx context.Context) error {
	return b.client.Close()
}
