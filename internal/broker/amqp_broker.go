// Package broker implements the AMQP task-publish broker and the AMQP RPC
// result-correlation backend. Both share one channel pool built on
// internal/container's ResourcePool, so fairness and ownership bookkeeping
// live in one place instead of being duplicated per caller.
package broker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/deliveryhero/celery-go/internal/container"
	"github.com/deliveryhero/celery-go/internal/metrics"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

// defaultChannelPoolSize is the default number of channels kept open on a
// single shared connection.
const defaultChannelPoolSize = 2

// maxDrainRetries bounds the publish retry loop. amqp091-go's
// Channel.Publish is synchronous over the connection and doesn't expose a
// drain event the way some async client libraries do; a bounded retry over
// a transient write failure is the closest analogue.
const maxDrainRetries = 5

// AMQPBroker publishes task envelopes over a pooled set of channels on one
// AMQP connection.
type AMQPBroker struct {
	name    string
	conn    *amqp.Connection
	pool    *container.ResourcePool[amqpChannel]
	log     *slog.Logger
	metrics *metrics.Metrics
}

// AMQPBrokerOptions configures channel pool size; zero uses the default.
type AMQPBrokerOptions struct {
	Name     string
	PoolSize int
	Metrics  *metrics.Metrics
}

// NewAMQPBroker dials url and builds a channel pool of the configured size.
func NewAMQPBroker(url string, opts AMQPBrokerOptions, log *slog.Logger) (*AMQPBroker, error) {
	if log == nil {
		log = slog.Default()
	}
	size := opts.PoolSize
	if size <= 0 {
		size = defaultChannelPoolSize
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broker: connect: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = "default"
	}
	b := &AMQPBroker{name: name, conn: conn, log: log, metrics: opts.Metrics}
	b.pool = container.NewResourcePool[amqpChannel](size,
		func(ctx context.Context) (amqpChannel, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, fmt.Errorf("broker: open channel: %w", err)
			}
			return ch, nil
		},
		func(ctx context.Context, ch amqpChannel) (string, error) {
			if err := ch.Close(); err != nil {
				return "", fmt.Errorf("broker: close channel: %w", err)
			}
			return "closed", nil
		},
	)
	return b, nil
}

// Publish borrows a channel, asserts routing and publishes the task
// envelope, retrying through the drain-equivalent loop on transient write
// failures. Returns "flushed to write buffer" on success.
func (b *AMQPBroker) Publish(ctx context.Context, exchange string, msg tasks.Message) (string, error) {
	var result string
	err := b.pool.Use(ctx, func(ctx context.Context, ch amqpChannel) error {
		routingKey := msg.Properties.DeliveryInfo.RoutingKey
		if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
			return fmt.Errorf("broker: assert queue %q: %w", routingKey, err)
		}
		if exchange != "" {
			if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("broker: assert exchange %q: %w", exchange, err)
			}
		}

		publishing := amqp.Publishing{
			ContentType:     msg.ContentType,
			ContentEncoding: msg.ContentEncoding,
			CorrelationId:   msg.Properties.CorrelationID,
			ReplyTo:         msg.Properties.ReplyTo,
			DeliveryMode:    uint8(msg.Properties.DeliveryMode),
			Priority:        uint8(msg.Properties.Priority),
			Body:            []byte(msg.Body),
			Headers:         headersToAMQPTable(msg.Headers),
		}

		var publishErr error
		for attempt := 0; attempt < maxDrainRetries; attempt++ {
			publishErr = ch.PublishWithContext(ctx, exchange, routingKey, false, false, publishing)
			if publishErr == nil {
				result = "flushed to write buffer"
				return nil
			}
			b.log.Warn("broker: publish retry", "attempt", attempt, "error", publishErr)
		}
		return fmt.Errorf("broker: publish failed after %d attempts: %w", maxDrainRetries, publishErr)
	})
	if err != nil {
		b.metrics.ObservePublish(b.name, "failure")
		return "", err
	}
	b.metrics.ObservePublish(b.name, "success")
	b.metrics.SetPoolOccupancy(b.name, b.pool.NumInUse(), b.pool.NumUnused())
	return result, nil
}

func headersToAMQPTable(h map[string]string) amqp.Table {
	if len(h) == 0 {
		return nil
	}
	t := amqp.Table{}
	for k, v := range h {
		t[k] = v
	}
	return t
}

// End destroys the channel pool then closes the connection. Calling End
// twice is unsupported.
func (b *AMQPBroker) End(ctx context.Context) error {
	outcomes, err := b.pool.DestroyAll(ctx).Wait(ctx)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			b.log.Warn("broker: channel close failed during shutdown", "error", o.Err)
		}
	}
	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("broker: close connection: %w", err)
	}
	return nil
}
