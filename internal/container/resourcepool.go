package container

import (
	"context"
	"sync"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// DestroyOutcome is one entry of the ordered sequence DestroyAll settles
// with.
type DestroyOutcome[R any] struct {
	Resource R
	Result   string
	Err      error
}

// ResourcePool bounds concurrent use of resources created by a factory and
// torn down by a destructor, with FIFO fairness over waiters and scoped
// borrow/return helpers.
type ResourcePool[R comparable] struct {
	mu       sync.Mutex
	create   func(context.Context) (R, error)
	destroy  func(context.Context, R) (string, error)
	capacity int

	owned    map[R]struct{}
	inUse    map[R]struct{}
	unused   *List[R]
	waiters  *List[*Future[R]]
	creating int

	destroying     bool
	outcomes       []DestroyOutcome[R]
	pendingDestroy int
	destroyDone    *Future[[]DestroyOutcome[R]]
}

// NewResourcePool constructs a pool with the given factory, destructor and
// capacity (must be >= 1).
func NewResourcePool[R comparable](capacity int, create func(context.Context) (R, error), destroy func(context.Context, R) (string, error)) *ResourcePool[R] {
	if capacity < 1 {
		capacity = 1
	}
	return &ResourcePool[R]{
		create:   create,
		destroy:  destroy,
		capacity: capacity,
		owned:    make(map[R]struct{}),
		inUse:    make(map[R]struct{}),
		unused:   NewList[R](),
		waiters:  NewList[*Future[R]](),
	}
}

// Get returns the FIFO-oldest unused resource, creates a new one if under
// capacity, or blocks FIFO for a Return.
func (p *ResourcePool[R]) Get(ctx context.Context) (R, error) {
	var zero R

	p.mu.Lock()
	if p.destroying {
		p.mu.Unlock()
		return zero, errs.NewDisconnectedError("pool destroyed")
	}
	if r, ok := p.unused.PopFront(); ok {
		p.inUse[r] = struct{}{}
		p.mu.Unlock()
		return r, nil
	}
	if len(p.owned)+p.creating < p.capacity {
		p.creating++
		p.mu.Unlock()

		r, err := p.create(ctx)

		p.mu.Lock()
		p.creating--
		if err != nil {
			p.mu.Unlock()
			return zero, err
		}
		p.owned[r] = struct{}{}
		p.inUse[r] = struct{}{}
		p.mu.Unlock()
		return r, nil
	}

	waiter := NewFuture[R]()
	p.waiters.PushBack(waiter)
	p.mu.Unlock()

	return waiter.Wait(ctx)
}

// Return pushes r back to the unused deque, hands it directly to the
// oldest waiter if any, or destroys it immediately if DestroyAll is in
// flight. It errors if r was not issued by this pool.
func (p *ResourcePool[R]) Return(r R) error {
	p.mu.Lock()
	if _, ok := p.owned[r]; !ok {
		p.mu.Unlock()
		return errs.NewParseError("resource", "not owned by this pool", nil)
	}
	delete(p.inUse, r)

	if p.destroying {
		p.mu.Unlock()
		p.destroyOne(r)
		return nil
	}

	if waiter, ok := p.waiters.PopFront(); ok {
		p.inUse[r] = struct{}{}
		p.mu.Unlock()
		waiter.Resolve(r)
		return nil
	}

	p.unused.PushBack(r)
	p.mu.Unlock()
	return nil
}

// Use acquires a resource, runs fn, and returns the resource on both the
// success and failure path, propagating fn's outcome.
func (p *ResourcePool[R]) Use(ctx context.Context, fn func(context.Context, R) error) error {
	r, err := p.Get(ctx)
	if err != nil {
		return err
	}
	defer p.Return(r)
	return fn(ctx, r)
}

// ReturnAfter returns r once fut settles, forwarding fut's outcome to the
// caller through the returned future, which settles after r is returned.
func (p *ResourcePool[R]) ReturnAfter(fut *Future[struct{}], r R) *Future[struct{}] {
	out := NewFuture[struct{}]()
	go func() {
		_, err := fut.Wait(context.Background())
		p.Return(r)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(struct{}{})
	}()
	return out
}

// DestroyAll refuses further Gets, destroys every unused resource
// immediately, and defers destruction of in-use resources until their
// Return. The returned future settles once every owned resource has been
// destroyed, in destruction order.
func (p *ResourcePool[R]) DestroyAll(ctx context.Context) *Future[[]DestroyOutcome[R]] {
	p.mu.Lock()
	if p.destroyDone != nil {
		done := p.destroyDone
		p.mu.Unlock()
		return done
	}
	p.destroying = true
	p.destroyDone = NewFuture[[]DestroyOutcome[R]]()
	total := len(p.owned)
	p.pendingDestroy = total

	var toDestroyNow []R
	for {
		r, ok := p.unused.PopFront()
		if !ok {
			break
		}
		toDestroyNow = append(toDestroyNow, r)
	}
	var blocked []*Future[R]
	for {
		w, ok := p.waiters.PopFront()
		if !ok {
			break
		}
		blocked = append(blocked, w)
	}
	p.mu.Unlock()

	for _, w := range blocked {
		w.Reject(errs.NewDisconnectedError("pool destroyed"))
	}

	if total == 0 {
		p.destroyDone.Resolve(nil)
		return p.destroyDone
	}

	for _, r := range toDestroyNow {
		p.destroyOne(r)
	}
	return p.destroyDone
}

// destroyOne destroys a single owned resource and, once every owned
// resource has been destroyed, settles destroyDone.
func (p *ResourcePool[R]) destroyOne(r R) {
	result, err := p.destroy(context.Background(), r)

	p.mu.Lock()
	delete(p.owned, r)
	p.outcomes = append(p.outcomes, DestroyOutcome[R]{Resource: r, Result: result, Err: err})
	p.pendingDestroy--
	done := p.pendingDestroy == 0
	var outcomes []DestroyOutcome[R]
	if done {
		outcomes = append([]DestroyOutcome[R]{}, p.outcomes...)
	}
	p.mu.Unlock()

	if done {
		p.destroyDone.Resolve(outcomes)
	}
}

// NumOwned, NumInUse and NumUnused expose the pool's bookkeeping for
// invariant testing (numOwned = numInUse + numUnused, numOwned <= capacity).
func (p *ResourcePool[R]) NumOwned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.owned)
}

func (p *ResourcePool[R]) NumInUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

func (p *ResourcePool[R]) NumUnused() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unused.Len()
}

// Capacity returns the pool's configured capacity.
func (p *ResourcePool[R]) Capacity() int {
	return p.capacity
}
