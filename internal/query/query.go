// Package query implements a declarative descriptor layer that maps URI
// query keys onto typed struct fields.
package query

import "github.com/deliveryhero/celery-go/internal/util"

// AsScalar returns the last element of vals, or "" when vals is empty.
func AsScalar(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

// AsArray returns vals as a sequence: a nil vals becomes an empty, non-nil
// slice, anything else is returned unchanged.
func AsArray(vals []string) []string {
	if vals == nil {
		return []string{}
	}
	return vals
}

// Descriptor describes how to pull one typed value for Target out of a
// parsed query map keyed by Source (already camelCase-normalized by the
// URI layer). A nil Parser behaves as identity over the scalar value when
// T can hold a string.
type Descriptor[T any] struct {
	Source string
	Target string
	Parser func(raw []string) (T, error)
}

// Apply looks up d.Source in queries; if present, it runs Parser (default:
// AsScalar then pass-through when T can hold a string; for other T a nil
// Parser assigns nothing) and calls assign with the result. Undefined
// sources are a no-op — callers leave the field absent.
func (d Descriptor[T]) Apply(queries map[string][]string, assign func(T)) error {
	vals, ok := queries[d.Source]
	if !ok {
		return nil
	}
	if d.Parser == nil {
		if v, ok := any(AsScalar(vals)).(T); ok {
			assign(v)
		}
		return nil
	}
	v, err := d.Parser(vals)
	if err != nil {
		return err
	}
	assign(v)
	return nil
}

// NewIntegerDescriptor builds a Descriptor[int64] using util.ParseInteger
// over the scalar value of the query key.
func NewIntegerDescriptor(source string) Descriptor[int64] {
	return Descriptor[int64]{
		Source: source,
		Parser: func(raw []string) (int64, error) {
			return util.ParseInteger(AsScalar(raw))
		},
	}
}

// NewBooleanDescriptor builds a Descriptor[bool] using util.ParseBoolean
// over the scalar value of the query key.
func NewBooleanDescriptor(source string) Descriptor[bool] {
	return Descriptor[bool]{
		Source: source,
		Parser: func(raw []string) (bool, error) {
			return util.ParseBoolean(AsScalar(raw))
		},
	}
}

// NewStringDescriptor builds a Descriptor[string] taking the scalar value
// verbatim.
func NewStringDescriptor(source string) Descriptor[string] {
	return Descriptor[string]{
		Source: source,
		Parser: func(raw []string) (string, error) {
			return AsScalar(raw), nil
		},
	}
}
