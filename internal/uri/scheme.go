// Package uri implements the connection-string parsing layer shared by the
// AMQP broker, AMQP RPC backend and Redis backend: a generic decomposition
// pass (scheme/authority/path/query) followed by per-scheme validators.
package uri

import (
	"regexp"
	"strings"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// Scheme enumerates every URI scheme this module recognizes.
type Scheme string

const (
	SchemeAMQP          Scheme = "amqp"
	SchemeAMQPS         Scheme = "amqps"
	SchemeRPC           Scheme = "rpc"
	SchemeRPCS          Scheme = "rpcs"
	SchemeRedis         Scheme = "redis"
	SchemeRediss        Scheme = "rediss"
	SchemeRedisSocket   Scheme = "redis+socket"
	SchemeRedissSocket  Scheme = "rediss+socket"
	SchemeSentinel      Scheme = "sentinel"
	SchemeSentinels     Scheme = "sentinels"
)

var knownSchemes = map[Scheme]struct{}{
	SchemeAMQP:         {},
	SchemeAMQPS:        {},
	SchemeRPC:          {},
	SchemeRPCS:         {},
	SchemeRedis:        {},
	SchemeRediss:       {},
	SchemeRedisSocket:  {},
	SchemeRedissSocket: {},
	SchemeSentinel:     {},
	SchemeSentinels:    {},
}

// IsKnown reports whether s is one of the schemes this module parses.
func (s Scheme) IsKnown() bool {
	_, ok := knownSchemes[s]
	return ok
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// rawScheme extracts the leading scheme token, lowercased and without the
// trailing colon, accepting any syntactically valid scheme. The generic
// ParseURI uses this; GetScheme layers the known-scheme check on top.
func rawScheme(s string) (Scheme, error) {
	m := schemeRe.FindString(s)
	if m == "" {
		return "", errs.NewParseError(s, "no recognizable scheme", nil)
	}
	return Scheme(strings.ToLower(strings.TrimSuffix(m, ":"))), nil
}

// GetScheme matches the leading scheme token and returns it lowercased,
// without the trailing colon. It fails if the token isn't one of the
// recognized Celery transport/backend schemes.
func GetScheme(s string) (Scheme, error) {
	sch, err := rawScheme(s)
	if err != nil {
		return "", err
	}
	if !sch.IsKnown() {
		return "", errs.NewParseError(s, "unrecognized scheme", nil)
	}
	return sch, nil
}

// aliasProtocol maps rpc/rpcs to the amqp/amqps protocol name they are
// aliases of.
func aliasProtocol(sch Scheme) string {
	switch sch {
	case SchemeRPC:
		return string(SchemeAMQP)
	case SchemeRPCS:
		return string(SchemeAMQPS)
	default:
		return string(sch)
	}
}
