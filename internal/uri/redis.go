package uri

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/query"
)

// RedisTCPOptions is the decoded form of a redis(s) TCP connection string.
type RedisTCPOptions struct {
	Protocol string
	Host     string
	Port     *int
	Password *string
	DB       *int
	NoDelay  *bool
}

var dbPathRe = regexp.MustCompile(`^/0*(\d+)$`)

// ParseRedisTCP parses a redis or rediss URI.
func ParseRedisTCP(s string) (*RedisTCPOptions, error) {
	u, err := ParseURI(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != SchemeRedis && u.Scheme != SchemeRediss {
		return nil, errs.NewParseError(s, "not a redis TCP scheme", nil)
	}
	if u.Authority == nil {
		return nil, errs.NewParseError(s, "missing authority", nil)
	}

	opts := &RedisTCPOptions{
		Protocol: string(u.Scheme),
		Host:     u.Authority.Host,
		Port:     u.Authority.Port,
	}

	if ui := u.Authority.UserInfo; ui != nil && ui.Pass != nil {
		opts.Password = ui.Pass
	}
	if err := query.NewStringDescriptor("password").Apply(u.Query, func(v string) { opts.Password = &v }); err != nil {
		return nil, err
	}

	if u.Path != "" {
		m := dbPathRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, errs.NewParseError(s, "invalid redis db path", nil)
		}
		db, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errs.NewParseError(s, "invalid redis db path", err)
		}
		opts.DB = &db
	}

	if err := query.NewBooleanDescriptor("noDelay").Apply(u.Query, func(v bool) { opts.NoDelay = &v }); err != nil {
		return nil, err
	}
	return opts, nil
}

// RedisSocketOptions is the decoded form of a redis+socket(s) connection
// string.
type RedisSocketOptions struct {
	Protocol string
	Path     string
	Password *string
	NoDelay  *bool
}

// ParseRedisSocket parses a redis+socket or rediss+socket URI.
func ParseRedisSocket(s string) (*RedisSocketOptions, error) {
	u, err := ParseURI(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != SchemeRedisSocket && u.Scheme != SchemeRedissSocket {
		return nil, errs.NewParseError(s, "not a redis socket scheme", nil)
	}
	if strings.ContainsRune(u.Path, 0) {
		return nil, errs.NewParseError(s, "path contains NUL", nil)
	}

	opts := &RedisSocketOptions{
		Protocol: string(u.Scheme),
		Path:     u.Path,
	}
	if err := query.NewStringDescriptor("password").Apply(u.Query, func(v string) { opts.Password = &v }); err != nil {
		return nil, err
	}
	if err := query.NewBooleanDescriptor("noDelay").Apply(u.Query, func(v bool) { opts.NoDelay = &v }); err != nil {
		return nil, err
	}
	return opts, nil
}

// IsSentinelScheme reports whether sch is sentinel or sentinels. Sentinel
// option extraction happens in backend.NewUniversalClient, which switches
// on the scheme itself; Sentinel/Cluster URI emission is not supported,
// only parsing.
func IsSentinelScheme(sch Scheme) bool {
	return sch == SchemeSentinel || sch == SchemeSentinels
}
