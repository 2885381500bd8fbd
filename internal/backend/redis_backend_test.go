package backend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/deliveryhero/celery-go/pkg/tasks"
)

func newTestBackend(t *testing.T) *RedisBackend {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	client, err := NewUniversalClient(url, nil)
	if err != nil {
		t.Skipf("Skipping test - could not build Redis client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Skipping test - Redis not available: %v", err)
	}
	return NewRedisBackend(client, RedisBackendOptions{})
}

func TestRedisBackendPutThenGet(t *testing.T) {
	b := newTestBackend(t)
	defer b.End(context.Background())

	result := tasks.Result{TaskID: "rt-1", Status: tasks.StatusSuccess, Result: "ok", Children: []tasks.Result{}}
	if err := b.Put(context.Background(), result); err != nil {
		t.Fatal(err)
	}

	got, err := b.Get(context.Background(), "rt-1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got.TaskID != result.TaskID || got.Status != result.Status {
		t.Fatalf("got %+v, want %+v", got, result)
	}
}

func TestRedisBackendGetTimesOutWhenUnpublished(t *testing.T) {
	b := newTestBackend(t)
	defer b.End(context.Background())

	_, err := b.Get(context.Background(), "rt-never-arrives", 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRedisBackendDeleteReportsHitAndMiss(t *testing.T) {
	b := newTestBackend(t)
	defer b.End(context.Background())

	result := tasks.Result{TaskID: "rt-del", Status: tasks.StatusSuccess, Children: []tasks.Result{}}
	if err := b.Put(context.Background(), result); err != nil {
		t.Fatal(err)
	}

	got, err := b.Delete(context.Background(), "rt-del")
	if err != nil {
		t.Fatal(err)
	}
	if got != "1" {
		t.Fatalf("got %q, want 1 on hit", got)
	}

	got, err = b.Delete(context.Background(), "rt-del")
	if err != nil {
		t.Fatal(err)
	}
	if got != "0" {
		t.Fatalf("got %q, want 0 on miss", got)
	}
}
