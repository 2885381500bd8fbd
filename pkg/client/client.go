// Package client is the public façade composing brokers, a result backend
// and lifecycle into the library's programmatic surface: Client, Task and
// Result.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deliveryhero/celery-go/internal/broker"
	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/pack"
	"github.com/deliveryhero/celery-go/pkg/tasks"
)

// ResultBackend is the minimal result-store surface a Client depends on.
type ResultBackend interface {
	Put(ctx context.Context, result tasks.Result) error
	Get(ctx context.Context, taskID string, timeout time.Duration) (tasks.Result, error)
	Delete(ctx context.Context, taskID string) (string, error)
	End(ctx context.Context) error
}

// Client owns a set of brokers (behind a Dispatcher), one result backend
// and this instance's identity. Brokers and the backend are created by the
// caller (or createClient sugar) and handed in already connected.
type Client struct {
	id         string
	exchange   string
	brokers    []broker.Broker
	dispatcher *broker.Dispatcher
	backend    ResultBackend
	packer     *pack.Packer
	log        *slog.Logger

	mu    chan struct{} // 1-buffered mutex-as-channel guarding ended
	ended bool
}

// Options configures a Client.
type Options struct {
	Brokers          []broker.Broker
	Backend          ResultBackend
	ID               string
	Exchange         string
	FailoverStrategy broker.FailoverStrategy
	Packer           *pack.Packer
	Log              *slog.Logger
}

// New composes a Client from already-constructed brokers and a backend.
func New(opts Options) *Client {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := opts.Packer
	if p == nil {
		p = pack.DefaultPacker()
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		id:         id,
		exchange:   opts.Exchange,
		brokers:    opts.Brokers,
		dispatcher: broker.NewDispatcher(opts.Brokers, opts.FailoverStrategy),
		backend:    opts.Backend,
		packer:     p,
		log:        log,
		mu:         make(chan struct{}, 1),
	}
}

// lock/unlock implement a trivial channel-based mutex guarding ended.
func (c *Client) lock()   { c.mu <- struct{}{} }
func (c *Client) unlock() { <-c.mu }

// Task names a remote task this client can submit.
type Task struct {
	client *Client
	name   string
}

// CreateTask names a remote task by its registered name.
func (c *Client) CreateTask(name string) *Task {
	return &Task{client: c, name: name}
}

// ApplyAsyncOptions configures one task submission.
type ApplyAsyncOptions struct {
	Args        []any
	Kwargs      map[string]any
	Queue       string
	Priority    int
	Compression pack.Compressor
	Serializer  pack.Serializer
	ETA         *time.Time
	Expires     *time.Time
}

// Result is the future-like handle ApplyAsync returns: callers Get() it to
// await the worker's eventual result.
type Result struct {
	TaskID string
	client *Client
}

// Get awaits this task's result via the client's backend, racing timeout
// when positive.
func (r *Result) Get(ctx context.Context, timeout time.Duration) (tasks.Result, error) {
	return r.client.backend.Get(ctx, r.TaskID, timeout)
}

// ApplyAsync builds the task envelope, packs the body, dispatches it
// through the broker failover group and returns a Result handle keyed by a
// newly-minted correlation UUID.
func (t *Task) ApplyAsync(ctx context.Context, opts ApplyAsyncOptions) (*Result, error) {
	c := t.client
	c.lock()
	ended := c.ended
	c.unlock()
	if ended {
		return nil, errs.NewDisconnectedError("client ended")
	}

	serializer := opts.Serializer
	if serializer == nil {
		serializer = c.packer.Serializer
	}
	compressor := opts.Compression
	if compressor == nil {
		compressor = c.packer.Compressor
	}
	packer := pack.NewPacker(serializer, compressor, c.packer.ByteEncoder)

	body := tasks.Body{
		Args:   opts.Args,
		Kwargs: opts.Kwargs,
		Embed:  tasks.Embed{Callbacks: []any{}, Errbacks: []any{}, Chain: []any{}},
	}
	packed, err := packer.Pack(body)
	if err != nil {
		return nil, fmt.Errorf("client: pack task body: %w", err)
	}

	bodyEncoding := tasks.BodyEncodingBase64
	if _, ok := packer.ByteEncoder.(pack.PlaintextEncoder); ok {
		bodyEncoding = tasks.BodyEncodingUTF8
	}

	correlationID := uuid.NewString()
	headers := map[string]string{
		"task": t.name,
		"id":   correlationID,
		"lang": "py",
	}
	if opts.ETA != nil {
		headers["eta"] = opts.ETA.UTC().Format(time.RFC3339Nano)
	}
	if opts.Expires != nil {
		headers["expires"] = opts.Expires.UTC().Format(time.RFC3339Nano)
	}
	msg := tasks.Message{
		Body:            packed,
		ContentEncoding: "utf-8",
		ContentType:     contentTypeFor(serializer),
		Headers:         headers,
		Properties: tasks.Properties{
			CorrelationID: correlationID,
			ReplyTo:       t.replyTo(),
			DeliveryMode:  tasks.DeliveryModePersistent,
			DeliveryInfo: tasks.DeliveryInfo{
				Exchange:   c.exchange,
				RoutingKey: opts.Queue,
			},
			Priority:     opts.Priority,
			BodyEncoding: bodyEncoding,
		},
	}

	if _, err := c.dispatcher.Publish(ctx, c.exchange, msg); err != nil {
		return nil, fmt.Errorf("client: dispatch task: %w", err)
	}

	return &Result{TaskID: correlationID, client: c}, nil
}

// replyTo is populated only when the client's backend is RPC-backed: a
// Redis-backed client has no reply queue to advertise.
func (t *Task) replyTo() string {
	if _, ok := t.client.backend.(*broker.RPCBackend); ok {
		return t.client.id
	}
	return ""
}

func contentTypeFor(s pack.Serializer) string {
	switch s.Name() {
	case "yaml":
		return "application/x-yaml"
	default:
		return "application/json"
	}
}

// ender matches brokers that own a connection to tear down; the Broker
// interface itself only requires Publish, so fakes stay trivial.
type ender interface {
	End(ctx context.Context) error
}

// End tears down the backend and every broker, cooperatively: further
// ApplyAsync calls are refused after End returns (even mid-call, once the
// lock is acquired). The first failure is returned after every component
// has been given its shutdown call.
func (c *Client) End(ctx context.Context) error {
	c.lock()
	if c.ended {
		c.unlock()
		return nil
	}
	c.ended = true
	c.unlock()

	var firstErr error
	if c.backend != nil {
		firstErr = c.backend.End(ctx)
	}
	for _, b := range c.brokers {
		e, ok := b.(ender)
		if !ok {
			continue
		}
		if err := e.End(ctx); err != nil {
			c.log.Warn("client: broker shutdown failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
