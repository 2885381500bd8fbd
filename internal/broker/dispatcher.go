package broker

import (
	"context"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

// Broker is the minimal publish surface a Dispatcher fails over across.
type Broker interface {
	Publish(ctx context.Context, exchange string, msg tasks.Message) (string, error)
}

// FailoverStrategy selects the next broker to try from the remaining
// candidates (brokers not yet attempted in this call).
type FailoverStrategy func(candidates []Broker) Broker

// RoundRobin is the default FailoverStrategy: always try the first
// remaining candidate, in order.
func RoundRobin(candidates []Broker) Broker {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// Dispatcher publishes through a configured broker list, retrying with a
// freshly-selected broker (never one that just failed within the same
// call, while alternatives remain) up to len(brokers) attempts. It
// satisfies the Broker interface itself, so a Dispatcher can stand in
// anywhere a single broker is expected.
type Dispatcher struct {
	brokers  []Broker
	strategy FailoverStrategy
}

// NewDispatcher builds a Dispatcher over brokers using strategy, defaulting
// to RoundRobin when strategy is nil.
func NewDispatcher(brokers []Broker, strategy FailoverStrategy) *Dispatcher {
	if strategy == nil {
		strategy = RoundRobin
	}
	return &Dispatcher{brokers: brokers, strategy: strategy}
}

// Publish attempts delivery through up to len(brokers) brokers, surfacing
// every attempt's failure only once all have been tried.
func (d *Dispatcher) Publish(ctx context.Context, exchange string, msg tasks.Message) (string, error) {
	remaining := append([]Broker(nil), d.brokers...)
	var attempts []error

	for len(remaining) > 0 {
		chosen := d.strategy(remaining)
		if chosen == nil {
			break
		}

		result, err := chosen.Publish(ctx, exchange, msg)
		if err == nil {
			return result, nil
		}
		attempts = append(attempts, err)

		remaining = removeBroker(remaining, chosen)
	}

	return "", errs.NewBrokerError(attempts)
}

func removeBroker(brokers []Broker, target Broker) []Broker {
	out := make([]Broker, 0, len(brokers))
	removed := false
	for _, b := range brokers {
		if !removed && b == target {
			removed = true
			continue
		}
		out = append(out, b)
	}
	return out
}
