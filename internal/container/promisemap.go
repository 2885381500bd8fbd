package container

import (
	"sync"
	"time"

	"github.com/deliveryhero/celery-go/internal/errs"
)

type pmEntry[V any] struct {
	future *Future[V]
	timer  *time.Timer
}

// PromiseMap is a keyed future registry: every key is in exactly one of
// {pending, fulfilled, rejected}, and concurrent waiters on the same key
// share one eventual outcome.
type PromiseMap[V any] struct {
	mu      sync.Mutex
	entries map[string]*pmEntry[V]
	timeout time.Duration
}

// NewPromiseMap constructs a PromiseMap. If timeout > 0, settled entries
// auto-delete that long after settlement (the timer starts on settlement,
// not on creation).
func NewPromiseMap[V any](timeout time.Duration) *PromiseMap[V] {
	return &PromiseMap[V]{
		entries: make(map[string]*pmEntry[V]),
		timeout: timeout,
	}
}

// Get returns the Future for k, creating a pending record if none exists.
func (m *PromiseMap[V]) Get(k string) *Future[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(k).future
}

func (m *PromiseMap[V]) getLocked(k string) *pmEntry[V] {
	e, ok := m.entries[k]
	if !ok {
		e = &pmEntry[V]{future: NewFuture[V]()}
		m.entries[k] = e
	}
	return e
}

// Resolve settles k with v. The returned bool is true when this call
// created the record (k was previously unobserved).
func (m *PromiseMap[V]) Resolve(k string, v V) bool {
	m.mu.Lock()
	e, existed := m.entries[k]
	created := !existed
	if !existed {
		e = &pmEntry[V]{future: NewFuture[V]()}
		m.entries[k] = e
	}
	m.mu.Unlock()

	e.future.Resolve(v)
	m.armExpiry(k, e)
	return created
}

// ResolveFuture settles k by tracking src's eventual outcome: k follows
// whatever src resolves or rejects with, once src settles.
func (m *PromiseMap[V]) ResolveFuture(k string, src *Future[V]) bool {
	m.mu.Lock()
	e, existed := m.entries[k]
	created := !existed
	if !existed {
		e = &pmEntry[V]{future: NewFuture[V]()}
		m.entries[k] = e
	}
	m.mu.Unlock()

	e.future.Follow(src)
	go func() {
		<-src.Done()
		m.armExpiry(k, e)
	}()
	return created
}

// Reject settles k with err. Symmetric to Resolve.
func (m *PromiseMap[V]) Reject(k string, err error) bool {
	m.mu.Lock()
	e, existed := m.entries[k]
	created := !existed
	if !existed {
		e = &pmEntry[V]{future: NewFuture[V]()}
		m.entries[k] = e
	}
	m.mu.Unlock()

	e.future.Reject(err)
	m.armExpiry(k, e)
	return created
}

func (m *PromiseMap[V]) armExpiry(k string, e *pmEntry[V]) {
	if m.timeout <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[k]; !ok || cur != e {
		return
	}
	if e.timer != nil {
		return
	}
	e.timer = time.AfterFunc(m.timeout, func() {
		m.mu.Lock()
		if cur, ok := m.entries[k]; ok && cur == e {
			delete(m.entries, k)
		}
		m.mu.Unlock()
	})
}

// Delete removes k, rejecting any still-pending waiter with a cancellation
// reason. Returns whether a record existed to delete.
func (m *PromiseMap[V]) Delete(k string) bool {
	m.mu.Lock()
	e, ok := m.entries[k]
	if ok {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.future.Reject(errs.NewDisconnectedError(errs.Deleted))
	return true
}

// RejectAll rejects every currently-pending key with err, leaving settled
// keys intact.
func (m *PromiseMap[V]) RejectAll(err error) {
	type rejected struct {
		key   string
		entry *pmEntry[V]
	}
	m.mu.Lock()
	pending := make([]rejected, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.future.Settled() {
			pending = append(pending, rejected{k, e})
		}
	}
	m.mu.Unlock()
	for _, p := range pending {
		p.entry.future.Reject(err)
		m.armExpiry(p.key, p.entry)
	}
}

// Clear rejects every pending key with a "cleared" reason and drops all
// records.
func (m *PromiseMap[V]) Clear() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*pmEntry[V])
	m.mu.Unlock()

	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		if !e.future.Settled() {
			e.future.Reject(errs.NewDisconnectedError(errs.Cleared))
		}
	}
}

// Has reports whether k currently has a record (pending or settled).
func (m *PromiseMap[V]) Has(k string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[k]
	return ok
}

// IsPending reports whether k exists and is not yet settled.
func (m *PromiseMap[V]) IsPending(k string) bool {
	m.mu.Lock()
	e, ok := m.entries[k]
	m.mu.Unlock()
	return ok && !e.future.Settled()
}

// IsFulfilled reports whether k exists, is settled, and settled without
// error.
func (m *PromiseMap[V]) IsFulfilled(k string) bool {
	m.mu.Lock()
	e, ok := m.entries[k]
	m.mu.Unlock()
	if !ok {
		return false
	}
	_, err, settled := e.future.Peek()
	return settled && err == nil
}

// IsRejected reports whether k exists, is settled, and settled with an
// error.
func (m *PromiseMap[V]) IsRejected(k string) bool {
	m.mu.Lock()
	e, ok := m.entries[k]
	m.mu.Unlock()
	if !ok {
		return false
	}
	_, err, settled := e.future.Peek()
	return settled && err != nil
}
