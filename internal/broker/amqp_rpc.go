package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/deliveryhero/celery-go/internal/container"
	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

// rpcEntryTimeout is the PromiseMap's per-entry timeout: long enough that
// in practice only an explicit Delete or a broker-level rejection ever
// clears an entry.
const rpcEntryTimeout = 365 * 24 * time.Hour

// RPCBackend correlates task results delivered on a reply queue addressed
// by this client's UUID, keyed by AMQP correlationId, using a PromiseMap
// to fan pending Gets in against deliveries arriving on the consumer
// channel.
type RPCBackend struct {
	conn        io.Closer
	pool        *container.ResourcePool[amqpChannel]
	consumerCh  amqpChannel
	consumerTag string
	routingKey  string
	pending     *container.PromiseMap[[]byte]
	log         *slog.Logger
}

// NewRPCBackend opens a connection, a capacity-2 channel pool, reserves one
// channel as the consumer channel, asserts the reply queue and starts
// consuming with noAck=true.
func NewRPCBackend(url, routingKey string, log *slog.Logger) (*RPCBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rpc backend: connect: %w", err)
	}

	pool := container.NewResourcePool[amqpChannel](defaultChannelPoolSize,
		func(ctx context.Context) (amqpChannel, error) { return conn.Channel() },
		func(ctx context.Context, ch amqpChannel) (string, error) {
			if err := ch.Close(); err != nil {
				return "", err
			}
			return "closed", nil
		},
	)

	b, err := newRPCBackend(conn, pool, routingKey, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// newRPCBackend wires an RPCBackend around an already-built channel pool:
// it reserves one channel as the consumer channel, asserts the reply queue
// and starts consuming with noAck=true. Split out from NewRPCBackend so
// tests can supply a fake pool instead of dialing a real connection.
func newRPCBackend(conn io.Closer, pool *container.ResourcePool[amqpChannel], routingKey string, log *slog.Logger) (*RPCBackend, error) {
	b := &RPCBackend{
		conn:       conn,
		pool:       pool,
		routingKey: routingKey,
		pending:    container.NewPromiseMap[[]byte](rpcEntryTimeout),
		log:        log,
	}

	consumerCh, err := pool.Get(context.Background())
	if err != nil {
		return nil, fmt.Errorf("rpc backend: acquire consumer channel: %w", err)
	}
	b.consumerCh = consumerCh

	args := amqp.Table{"x-expires": int32(24 * time.Hour / time.Millisecond)}
	if _, err := consumerCh.QueueDeclare(routingKey, false, false, false, false, args); err != nil {
		return nil, fmt.Errorf("rpc backend: assert reply queue: %w", err)
	}

	tag := "celery-go-" + routingKey
	deliveries, err := consumerCh.Consume(routingKey, tag, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc backend: consume: %w", err)
	}
	b.consumerTag = tag

	go b.onDeliveries(deliveries)
	return b, nil
}

func (b *RPCBackend) onDeliveries(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		b.pending.Resolve(d.CorrelationId, d.Body)
	}
	// Channel closed: the broker cancelled our consumer.
	b.pending.RejectAll(errs.NewConsumerCancelledError(b.consumerTag))
}

// Put serializes the result as UTF-8 JSON and sends it to routingKey with
// the same drain-retry loop as the broker. Rarely used on the client side
// but required by the ResultBackend interface.
func (b *RPCBackend) Put(ctx context.Context, result tasks.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("rpc backend: marshal result: %w", err)
	}
	return b.pool.Use(ctx, func(ctx context.Context, ch amqpChannel) error {
		var publishErr error
		for attempt := 0; attempt < maxDrainRetries; attempt++ {
			publishErr = ch.PublishWithContext(ctx, "", b.routingKey, false, false, amqp.Publishing{
				ContentType:     "application/json",
				ContentEncoding: "utf-8",
				CorrelationId:   result.TaskID,
				Body:            body,
			})
			if publishErr == nil {
				return nil
			}
		}
		return fmt.Errorf("rpc backend: put failed: %w", publishErr)
	})
}

// Get awaits the PromiseMap entry for taskId, JSON-decodes the payload and
// races it against timeout.
func (b *RPCBackend) Get(ctx context.Context, taskID string, timeout time.Duration) (tasks.Result, error) {
	fut := b.pending.Get(taskID)

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := fut.Wait(waitCtx)
	if err != nil {
		if waitCtx.Err() != nil {
			return tasks.Result{}, errs.NewTimeoutError(timeout.String())
		}
		return tasks.Result{}, err
	}

	var result tasks.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return tasks.Result{}, fmt.Errorf("rpc backend: decode result: %w", err)
	}
	return result, nil
}

// Delete removes the pending entry for taskID, returning "deleted" or "no
// result found".
func (b *RPCBackend) Delete(ctx context.Context, taskID string) (string, error) {
	if b.pending.Delete(taskID) {
		return "deleted", nil
	}
	return "no result found", nil
}

// URI is left unimplemented: an RPC result is addressed by reply queue,
// not a connection string.
func (b *RPCBackend) URI() (string, error) {
	return "", errs.NewUnimplementedError("RPCBackend.URI")
}

// End rejects all pending gets with a disconnecting error, cancels the
// consumer, returns the consumer channel to the pool, destroys the pool
// and closes the connection.
func (b *RPCBackend) End(ctx context.Context) error {
	b.pending.RejectAll(errs.NewDisconnectedError("disconnecting"))
	if err := b.consumerCh.Cancel(b.consumerTag, false); err != nil {
		b.log.Warn("rpc backend: cancel consumer failed", "error", err)
	}
	if err := b.pool.Return(b.consumerCh); err != nil {
		b.log.Warn("rpc backend: return consumer channel failed", "error", err)
	}
	if _, err := b.pool.DestroyAll(ctx).Wait(ctx); err != nil {
		return err
	}
	return b.conn.Close()
}
