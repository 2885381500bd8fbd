package client

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deliveryhero/celery-go/internal/backend"
	"github.com/deliveryhero/celery-go/internal/broker"
	"github.com/deliveryhero/celery-go/internal/uri"
)

// CreateClientOptions is the sugar-level configuration: connection strings
// rather than pre-built brokers/backends.
type CreateClientOptions struct {
	BrokerURLs    []string
	ResultBackend string
	Exchange      string
	ID            string
	Log           *slog.Logger
}

// CreateClient resolves each broker URL and the result backend URL to
// concrete implementations (AMQP broker/RPC backend or Redis backend,
// picked by scheme) and composes a ready-to-use Client.
func CreateClient(opts CreateClientOptions) (*Client, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	// Resolved once, up front: an RPC backend's reply queue is named after
	// this client's ID, so the ID handed to New below must be the same one
	// used to build the backend, not a second UUID minted independently.
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	brokers := make([]broker.Broker, 0, len(opts.BrokerURLs))
	for _, u := range opts.BrokerURLs {
		b, err := buildBroker(u, opts.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("createClient: broker %q: %w", u, err)
		}
		brokers = append(brokers, b)
	}

	resultBackend, err := buildBackend(opts.ResultBackend, id, log)
	if err != nil {
		return nil, fmt.Errorf("createClient: backend %q: %w", opts.ResultBackend, err)
	}

	return New(Options{
		Brokers:  brokers,
		Backend:  resultBackend,
		ID:       id,
		Exchange: opts.Exchange,
		Log:      log,
	}), nil
}

func buildBroker(rawURI, exchange string, log *slog.Logger) (broker.Broker, error) {
	sch, err := uri.GetScheme(rawURI)
	if err != nil {
		return nil, err
	}
	switch sch {
	case uri.SchemeAMQP, uri.SchemeAMQPS, uri.SchemeRPC, uri.SchemeRPCS:
		return broker.NewAMQPBroker(rawURI, broker.AMQPBrokerOptions{Name: rawURI}, log)
	default:
		return nil, fmt.Errorf("createClient: %q is not a broker scheme", sch)
	}
}

func buildBackend(rawURI, id string, log *slog.Logger) (ResultBackend, error) {
	sch, err := uri.GetScheme(rawURI)
	if err != nil {
		return nil, err
	}
	switch sch {
	case uri.SchemeRPC, uri.SchemeRPCS, uri.SchemeAMQP, uri.SchemeAMQPS:
		return broker.NewRPCBackend(rawURI, id, log)
	case uri.SchemeRedis, uri.SchemeRediss, uri.SchemeRedisSocket, uri.SchemeRedissSocket, uri.SchemeSentinel, uri.SchemeSentinels:
		redisClient, err := backend.NewUniversalClient(rawURI, nil)
		if err != nil {
			return nil, err
		}
		return backend.NewRedisBackend(redisClient, backend.RedisBackendOptions{}), nil
	default:
		return nil, fmt.Errorf("createClient: %q is not a result-backend scheme", sch)
	}
}
