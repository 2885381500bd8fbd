package uri

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/deliveryhero/celery-go/internal/errs"
	"github.com/deliveryhero/celery-go/internal/util"
)

// UserInfo holds a decoded username and optional password.
type UserInfo struct {
	User string
	Pass *string
}

// Authority is the host[:port] portion of a URI, with optional userinfo.
type Authority struct {
	Host     string
	UserInfo *UserInfo
	Port     *int
}

// Uri is the generic decomposition every per-scheme parser builds on.
type Uri struct {
	Scheme    Scheme
	Authority *Authority
	Path      string
	Query     map[string][]string
	Raw       string
}

var hostLabelRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9\-]{0,61}[A-Za-z0-9])?$`)

func validateHost(host string) error {
	if host == "" {
		return errs.NewParseError(host, "empty host", nil)
	}
	for _, label := range strings.Split(host, ".") {
		if !hostLabelRe.MatchString(label) {
			return errs.NewParseError(host, "invalid host label", nil)
		}
	}
	return nil
}

func parsePort(raw string) (int, error) {
	if raw == "" {
		return 0, errs.NewParseError(raw, "empty port", nil)
	}
	if len(raw) > 1 && raw[0] == '0' {
		return 0, errs.NewParseError(raw, "octal-looking port", nil)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, errs.NewParseError(raw, "port is not decimal", nil)
		}
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 65535 {
		return 0, errs.NewParseError(raw, "port out of range", nil)
	}
	return v, nil
}

var queryTokenRe = regexp.MustCompile(`^[A-Za-z0-9*\-._+%]*$`)

// ParseQueryString parses the grammar after '?': key=value(&key=value)*,
// each token drawn from [A-Za-z0-9*\-._+%]. Repeated keys collapse into an
// ordered sequence; snake_case keys are normalized to camelCase.
func ParseQueryString(raw string) (map[string][]string, error) {
	out := map[string][]string{}
	if raw == "" {
		return out, nil
	}
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			return nil, errs.NewParseError(raw, "empty query token", nil)
		}
		idx := strings.IndexByte(seg, '=')
		if idx < 0 {
			return nil, errs.NewParseError(raw, "query token missing '='", nil)
		}
		key, val := seg[:idx], seg[idx+1:]
		if key == "" {
			return nil, errs.NewParseError(raw, "empty query key", nil)
		}
		if !queryTokenRe.MatchString(key) || !queryTokenRe.MatchString(val) {
			return nil, errs.NewParseError(raw, "invalid query token characters", nil)
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, errs.NewParseError(raw, "invalid percent-encoding in key", err)
		}
		decodedVal, err := url.QueryUnescape(val)
		if err != nil {
			return nil, errs.NewParseError(raw, "invalid percent-encoding in value", err)
		}
		camelKey := util.ToCamelCase(decodedKey)
		out[camelKey] = append(out[camelKey], decodedVal)
	}
	return out, nil
}

// ParseURI performs the generic decomposition: scheme, authority
// (host/userinfo/port), path and query. Any syntactically valid scheme is
// accepted here; per-scheme parsers call this first and then apply their
// own scheme check, validation and field extraction.
func ParseURI(s string) (*Uri, error) {
	sch, err := rawScheme(s)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return nil, errs.NewParseError(s, "malformed URI", err)
	}

	query, err := ParseQueryString(parsed.RawQuery)
	if err != nil {
		return nil, err
	}

	u := &Uri{
		Scheme: sch,
		Path:   parsed.Path,
		Query:  query,
		Raw:    s,
	}

	if parsed.Host != "" || parsed.User != nil {
		host := strings.ToLower(parsed.Hostname())
		if host != "" {
			if err := validateHost(host); err != nil {
				return nil, err
			}
		}
		auth := &Authority{Host: host}

		if portStr := parsed.Port(); portStr != "" {
			p, err := parsePort(portStr)
			if err != nil {
				return nil, err
			}
			auth.Port = &p
		}

		if parsed.User != nil {
			ui := &UserInfo{User: parsed.User.Username()}
			if pass, ok := parsed.User.Password(); ok {
				ui.Pass = &pass
			}
			auth.UserInfo = ui
		}

		u.Authority = auth
	}

	return u, nil
}
