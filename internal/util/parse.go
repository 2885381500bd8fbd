// Package util holds small parsing and async-race helpers shared across the
// URI, query-descriptor and client layers.
package util

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// ParseInteger accepts 0b/0x/0-prefixed-octal/decimal integers, trimming
// surrounding whitespace first. It rejects empty bodies, mixed bases and
// digits invalid for the chosen base.
func ParseInteger(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errs.NewParseError(s, "empty integer", nil)
	}

	neg := false
	body := trimmed
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}

	base := 10
	digits := body
	lower := strings.ToLower(body)
	switch {
	case strings.HasPrefix(lower, "0b"):
		base = 2
		digits = body[2:]
	case strings.HasPrefix(lower, "0x"):
		base = 16
		digits = body[2:]
	case len(body) > 1 && body[0] == '0':
		base = 8
		digits = body[1:]
	}

	if digits == "" {
		return 0, errs.NewParseError(s, "empty digit body", nil)
	}

	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, errs.NewParseError(s, "invalid digits for base", err)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ParseBoolean maps true/on/yes/1 to true and false/off/no/0 to false,
// case-insensitively; anything else fails.
func ParseBoolean(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	default:
		return false, errs.NewParseError(s, "not a recognized boolean", nil)
	}
}

// ToCamelCase converts snake_case to camelCase by dropping underscores and
// uppercasing the letter that follows. Idempotent on already-camelCase
// input, since there are no underscores left to find.
func ToCamelCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, r := range s {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
