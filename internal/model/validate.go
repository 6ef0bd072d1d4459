package model

// validate.go checks inbound record batches against their format's
// schema. Validation is pure: it takes the live schema and the
// candidate documents and returns a structured failure instead of
// persisting anything. A single bad document fails the whole batch,
// which the caller records as an errored upload session with zero
// records persisted.

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Sentinel errors for schema and batch validation failures. All are
// caller-facing usage errors, never retried.
var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrInvalidRegex  = errors.New("invalid regex")
)

// BatchError describes why an ingestion batch was rejected. Index is
// the zero-based position of the offending document.
type BatchError struct {
	Index  int
	Column string
	Reason string
}

func (e *BatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("document %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("document %d, column %q: %s", e.Index, e.Column, e.Reason)
}

// datetimeLayouts are the accepted representations for datetime
// columns. RFC 3339 first; date-only as a convenience.
var datetimeLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDatetime parses a datetime cell value.
func ParseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateBatch checks every document against the format's schema:
// every key must be a declared column and every value must match the
// declared kind (and regex, for constrained string columns). Returns
// nil if the entire batch is acceptable.
func ValidateBatch(format *Format, docs []Document) error {
	if len(docs) == 0 {
		return &BatchError{Index: 0, Reason: "batch contains no documents"}
	}

	// Compile regex constraints once for the whole batch. Patterns were
	// validated at format creation, so a failure here is a server bug.
	patterns := make(map[string]*regexp.Regexp)
	for _, col := range format.Schema {
		if col.Regex != "" {
			re, err := regexp.Compile(col.Regex)
			if err != nil {
				return fmt.Errorf("schema regex for column %q: %w", col.Name, err)
			}
			patterns[col.Name] = re
		}
	}

	for i, doc := range docs {
		if len(doc) == 0 {
			return &BatchError{Index: i, Reason: "document is empty"}
		}
		for key, value := range doc {
			col, ok := format.Schema.Column(key)
			if !ok {
				return &BatchError{Index: i, Column: key, Reason: "not declared in the format schema"}
			}
			if err := checkValue(col, value, patterns[key]); err != nil {
				return &BatchError{Index: i, Column: key, Reason: err.Error()}
			}
		}
	}
	return nil
}

// checkValue verifies one JSON-decoded value against its column.
func checkValue(col ColumnSchema, value any, pattern *regexp.Regexp) error {
	switch col.Kind {
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected a number, got %T", value)
		}
	case KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		if pattern != nil && !pattern.MatchString(s) {
			return fmt.Errorf("value %q does not match pattern %q", s, pattern.String())
		}
	case KindDatetime:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a datetime string, got %T", value)
		}
		if _, ok := ParseDatetime(s); !ok {
			return fmt.Errorf("value %q is not an ISO datetime", s)
		}
	default:
		return fmt.Errorf("unknown column kind %q", col.Kind)
	}
	return nil
}
