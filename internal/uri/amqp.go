package uri

import (
	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/query"
)

// AMQPOptions is the decoded form of an amqp(s)/rpc(s) connection string.
// rpc/rpcs alias to amqp/amqps: Protocol is always "amqp" or "amqps".
type AMQPOptions struct {
	Protocol   string
	Hostname   string
	Port       *int
	Username   *string
	Password   *string
	Vhost      *string
	ChannelMax *int64
	FrameMax   *int64
	Heartbeat  *int64
	Locale     *string
}

// ParseAMQP parses an amqp, amqps, rpc or rpcs URI.
func ParseAMQP(s string) (*AMQPOptions, error) {
	u, err := ParseURI(s)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case SchemeAMQP, SchemeAMQPS, SchemeRPC, SchemeRPCS:
	default:
		return nil, errs.NewParseError(s, "not an AMQP/RPC scheme", nil)
	}
	if u.Authority == nil {
		return nil, errs.NewParseError(s, "missing authority", nil)
	}

	opts := &AMQPOptions{
		Protocol: aliasProtocol(u.Scheme),
		Hostname: u.Authority.Host,
		Port:     u.Authority.Port,
	}
	if ui := u.Authority.UserInfo; ui != nil {
		user := ui.User
		opts.Username = &user
		opts.Password = ui.Pass
	}

	switch {
	case len(u.Path) == 0:
		// no trailing slash at all: default vhost, field stays unset.
	case u.Path == "/":
		empty := ""
		opts.Vhost = &empty
	default:
		vhost := u.Path[1:]
		opts.Vhost = &vhost
	}

	if err := query.NewIntegerDescriptor("channelMax").Apply(u.Query, func(v int64) { opts.ChannelMax = &v }); err != nil {
		return nil, err
	}
	if err := query.NewIntegerDescriptor("frameMax").Apply(u.Query, func(v int64) { opts.FrameMax = &v }); err != nil {
		return nil, err
	}
	if err := query.NewIntegerDescriptor("heartbeat").Apply(u.Query, func(v int64) { opts.Heartbeat = &v }); err != nil {
		return nil, err
	}
	if err := query.NewStringDescriptor("locale").Apply(u.Query, func(v string) { opts.Locale = &v }); err != nil {
		return nil, err
	}
	return opts, nil
}
