package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

type fakeBroker struct {
	name string
	err  error
}

func (f *fakeBroker) Publish(ctx context.Context, exchange string, msg tasks.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "flushed to write buffer", nil
}

func TestDispatcherSucceedsOnFirstBroker(t *testing.T) {
	a := &fakeBroker{name: "a"}
	b := &fakeBroker{name: "b", err: errors.New("down")}
	d := NewDispatcher([]Broker{a, b}, nil)

	res, err := d.Publish(context.Background(), "", tasks.Message{})
	if err != nil {
		t.Fatal(err)
	}
	if res != "flushed to write buffer" {
		t.Fatalf("got %q", res)
	}
}

func TestDispatcherFailsOverToSecondBroker(t *testing.T) {
	a := &fakeBroker{name: "a", err: errors.New("down")}
	b := &fakeBroker{name: "b"}
	d := NewDispatcher([]Broker{a, b}, nil)

	res, err := d.Publish(context.Background(), "", tasks.Message{})
	if err != nil {
		t.Fatal(err)
	}
	if res != "flushed to write buffer" {
		t.Fatalf("got %q", res)
	}
}

func TestDispatcherSurfacesBrokerErrorAfterAllFail(t *testing.T) {
	a := &fakeBroker{name: "a", err: errors.New("down-a")}
	b := &fakeBroker{name: "b", err: errors.New("down-b")}
	d := NewDispatcher([]Broker{a, b}, nil)

	_, err := d.Publish(context.Background(), "", tasks.Message{})
	if err == nil {
		t.Fatal("expected error when all brokers fail")
	}
	var brokerErr *errs.BrokerError
	if !errors.As(err, &brokerErr) {
		t.Fatalf("expected *errs.BrokerError, got %T", err)
	}
	if len(brokerErr.Attempts) != 2 {
		t.Fatalf("expected 2 attempts recorded, got %d", len(brokerErr.Attempts))
	}
}

func TestDispatcherSingleHealthyBrokerNeedsOneStrategyCall(t *testing.T) {
	calls := 0
	var tracker *fakeBroker
	tracker = &fakeBroker{name: "only"}
	countingStrategy := func(candidates []Broker) Broker {
		calls++
		if len(candidates) == 0 {
			return nil
		}
		return candidates[0]
	}
	d := NewDispatcher([]Broker{tracker}, countingStrategy)

	if _, err := d.Publish(context.Background(), "", tasks.Message{}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 strategy call for a single healthy broker, got %d", calls)
	}
}
