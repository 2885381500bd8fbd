package backend

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/uri"
)

// ClusterAddrs, when non-empty, builds a redis.ClusterClient instead of a
// single-node client. There is no dedicated cluster:// URI scheme, so
// Cluster routing is a constructor-level option rather than something
// NewUniversalClient infers from the URI alone.
type ClusterAddrs []string

// NewUniversalClient builds a go-redis UniversalClient from a parsed Redis
// connection string, covering TCP (redis/rediss), Unix socket
// (redis+socket/rediss+socket) and Sentinel (sentinel/sentinels). Pass
// clusterAddrs to build a Cluster client instead; it takes only the
// password from a redis/rediss URI, and no other URI option.
func NewUniversalClient(rawURI string, clusterAddrs ClusterAddrs) (redis.UniversalClient, error) {
	sch, err := uri.GetScheme(rawURI)
	if err != nil {
		return nil, err
	}

	if len(clusterAddrs) > 0 {
		var password string
		if sch == uri.SchemeRedis || sch == uri.SchemeRediss {
			opts, err := uri.ParseRedisTCP(rawURI)
			if err != nil {
				return nil, err
			}
			if opts.Password != nil {
				password = *opts.Password
			}
		}
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    clusterAddrs,
			Password: password,
		}), nil
	}

	switch sch {
	case uri.SchemeRedis, uri.SchemeRediss:
		opts, err := uri.ParseRedisTCP(rawURI)
		if err != nil {
			return nil, err
		}
		addr := opts.Host
		if opts.Port != nil {
			addr = fmt.Sprintf("%s:%d", opts.Host, *opts.Port)
		}
		var password string
		if opts.Password != nil {
			password = *opts.Password
		}
		db := 0
		if opts.DB != nil {
			db = *opts.DB
		}
		return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}), nil

	case uri.SchemeRedisSocket, uri.SchemeRedissSocket:
		opts, err := uri.ParseRedisSocket(rawURI)
		if err != nil {
			return nil, err
		}
		var password string
		if opts.Password != nil {
			password = *opts.Password
		}
		return redis.NewClient(&redis.Options{Network: "unix", Addr: opts.Path, Password: password}), nil

	case uri.SchemeSentinel, uri.SchemeSentinels:
		u, err := uri.ParseURI(rawURI)
		if err != nil {
			return nil, err
		}
		if u.Authority == nil {
			return nil, errs.NewParseError(rawURI, "missing sentinel authority", nil)
		}
		masterName := "mymaster"
		if vals, ok := u.Query["masterName"]; ok && len(vals) > 0 {
			masterName = vals[len(vals)-1]
		}
		addr := u.Authority.Host
		if u.Authority.Port != nil {
			addr = fmt.Sprintf("%s:%d", u.Authority.Host, *u.Authority.Port)
		}
		var password string
		if u.Authority.UserInfo != nil && u.Authority.UserInfo.Pass != nil {
			password = *u.Authority.UserInfo.Pass
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    masterName,
			SentinelAddrs: []string{addr},
			Password:      password,
		}), nil

	default:
		return nil, errs.NewParseError(rawURI, "not a Redis-family scheme", nil)
	}
}
