package search

import "fmt"

// Kind classifies query validation/compilation failures. All of these
// are caller-facing usage errors (4xx class) and are never silently
// corrected.
type Kind string

const (
	KindEmptyQuery       Kind = "EMPTY_QUERY"
	KindInvalidColumn    Kind = "INVALID_COLUMN"
	KindMixedColumnTypes Kind = "COLUMN_WITH_MIXED_TYPES"
	KindInvalidUsage     Kind = "INVALID_USAGE"
	KindCast             Kind = "CAST_ERROR"
)

// QueryError is the typed failure returned by query validation and
// compilation.
type QueryError struct {
	Kind   Kind
	Detail string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// ErrEmptyQuery rejects an explicit "search nothing" request: a
// non-null but empty format id list is a usage error, not an empty
// result.
var ErrEmptyQuery = &QueryError{Kind: KindEmptyQuery, Detail: "empty format list"}

// ErrCast is returned when a comparison value cannot be represented in
// the column's scalar type.
var ErrCast = &QueryError{Kind: KindCast, Detail: "couldn't cast value to expected type"}

func invalidColumn(name string) *QueryError {
	return &QueryError{
		Kind:   KindInvalidColumn,
		Detail: fmt.Sprintf("column %q doesn't exist in any of the requested/available formats", name),
	}
}

func mixedTypes(name string) *QueryError {
	return &QueryError{
		Kind:   KindMixedColumnTypes,
		Detail: fmt.Sprintf("column %q has mixed types across the visible formats", name),
	}
}

func invalidUsage(format string, args ...any) *QueryError {
	return &QueryError{Kind: KindInvalidUsage, Detail: fmt.Sprintf(format, args...)}
}
