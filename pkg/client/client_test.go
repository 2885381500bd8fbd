package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deliveryhero/celery-go/internal/broker"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

type capturingBroker struct {
	mu   sync.Mutex
	last tasks.Message
}

func (c *capturingBroker) Publish(ctx context.Context, exchange string, msg tasks.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = msg
	return "flushed to write buffer", nil
}

type fakeBackend struct {
	mu      sync.Mutex
	results map[string]tasks.Result
	ended   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{results: map[string]tasks.Result{}}
}

func (f *fakeBackend) Put(ctx context.Context, result tasks.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[result.TaskID] = result
	return nil
}

func (f *fakeBackend) Get(ctx context.Context, taskID string, timeout time.Duration) (tasks.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[taskID]
	if !ok {
		return tasks.UnknownResult(taskID), nil
	}
	return r, nil
}

func (f *fakeBackend) Delete(ctx context.Context, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.results[taskID]; !ok {
		return "no result found", nil
	}
	delete(f.results, taskID)
	return "deleted", nil
}

func (f *fakeBackend) End(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	return nil
}

func TestApplyAsyncDispatchesAndReturnsResolvableResult(t *testing.T) {
	b := &capturingBroker{}
	backend := newFakeBackend()
	c := New(Options{Brokers: []broker.Broker{b}, Backend: backend, Exchange: "celery"})

	task := c.CreateTask("tasks.add")
	res, err := task.ApplyAsync(context.Background(), ApplyAsyncOptions{
		Args:  []any{1, 2},
		Queue: "celery",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TaskID == "" {
		t.Fatal("expected a non-empty correlation id")
	}

	b.mu.Lock()
	msg := b.last
	b.mu.Unlock()
	if msg.Properties.CorrelationID != res.TaskID {
		t.Fatalf("published correlation id %q != result task id %q", msg.Properties.CorrelationID, res.TaskID)
	}
	if msg.Properties.ReplyTo != "" {
		t.Fatalf("expected empty ReplyTo for a non-RPC backend, got %q", msg.Properties.ReplyTo)
	}
	if msg.ContentType != "application/json" {
		t.Fatalf("content-type = %q", msg.ContentType)
	}
	if msg.Headers["task"] != "tasks.add" || msg.Headers["id"] != res.TaskID {
		t.Fatalf("headers = %v", msg.Headers)
	}

	backend.Put(context.Background(), tasks.Result{TaskID: res.TaskID, Status: tasks.StatusSuccess, Children: []tasks.Result{}})
	got, err := res.Get(context.Background(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != tasks.StatusSuccess {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestApplyAsyncRefusedAfterEnd(t *testing.T) {
	b := &capturingBroker{}
	backend := newFakeBackend()
	c := New(Options{Brokers: []broker.Broker{b}, Backend: backend})

	if err := c.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !backend.ended {
		t.Fatal("expected backend.End to be called")
	}

	task := c.CreateTask("tasks.add")
	if _, err := task.ApplyAsync(context.Background(), ApplyAsyncOptions{}); err == nil {
		t.Fatal("expected ApplyAsync to be refused after End")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	c := New(Options{Backend: backend})

	if err := c.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.End(context.Background()); err != nil {
		t.Fatalf("second End should be a no-op, got %v", err)
	}
}
