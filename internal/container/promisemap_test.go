package container

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPromiseMapGetThenResolve(t *testing.T) {
	m := NewPromiseMap[int](0)
	fut := m.Get("k")
	m.Resolve("k", 42)
	v, err := fut.Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v; want 42, nil", v, err)
	}
}

func TestPromiseMapResolveThenGet(t *testing.T) {
	m := NewPromiseMap[int](0)
	m.Resolve("k", 42)
	v, err := m.Get("k").Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v; want 42, nil", v, err)
	}
}

func TestPromiseMapReject(t *testing.T) {
	m := NewPromiseMap[int](0)
	fut := m.Get("k")
	wantErr := errors.New("boom")
	m.Reject("k", wantErr)
	_, err := fut.Wait(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestPromiseMapGetAfterDeleteRejects(t *testing.T) {
	m := NewPromiseMap[int](0)
	fut := m.Get("k")
	m.Delete("k")
	_, err := fut.Wait(context.Background())
	if err == nil {
		t.Fatal("expected rejection after delete")
	}
}

func TestPromiseMapRejectAllSparesSettled(t *testing.T) {
	m := NewPromiseMap[int](0)
	m.Resolve("settled", 1)
	pending := m.Get("pending")

	m.RejectAll(errors.New("disconnecting"))

	v, err := m.Get("settled").Wait(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("settled key disturbed: %d, %v", v, err)
	}
	if _, err := pending.Wait(context.Background()); err == nil {
		t.Fatal("expected pending key rejected")
	}
}

func TestPromiseMapClearRejectsWithClearedReason(t *testing.T) {
	m := NewPromiseMap[int](0)
	fut := m.Get("k")
	m.Clear()
	_, err := fut.Wait(context.Background())
	if err == nil || err.Error() != "cleared" {
		t.Fatalf("got %v, want cleared", err)
	}
	if m.Has("k") {
		t.Fatal("expected map emptied by Clear")
	}
}

func TestPromiseMapResolveFutureTracksRejection(t *testing.T) {
	m := NewPromiseMap[int](0)
	src := NewFuture[int]()
	m.ResolveFuture("k", src)

	wantErr := errors.New("upstream failed")
	src.Reject(wantErr)

	_, err := m.Get("k").Wait(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestPromiseMapResolveReturnsCreatedFlag(t *testing.T) {
	m := NewPromiseMap[int](0)
	if created := m.Resolve("k", 1); !created {
		t.Fatal("expected first resolve to report created=true")
	}
	if created := m.Resolve("k", 2); created {
		t.Fatal("expected second resolve to report created=false")
	}
	v, _ := m.Get("k").Wait(context.Background())
	if v != 2 {
		t.Fatalf("expected overwrite semantics, got %d", v)
	}
}

func TestPromiseMapExpiry(t *testing.T) {
	m := NewPromiseMap[int](10 * time.Millisecond)
	m.Resolve("k", 1)
	if !m.Has("k") {
		t.Fatal("expected key present immediately after settlement")
	}
	time.Sleep(15 * time.Millisecond)
	if m.Has("k") {
		t.Fatal("expected key auto-removed after timeout")
	}
}
