// Package search implements the dynamic, type-checked record query
// engine: caller-supplied boolean query trees are validated against
// the schemas of the formats the caller may read, type-unified across
// formats, and compiled into parameterized SQL conditions over the
// JSONB document column.
package search

import (
	"time"

	"github.com/google/uuid"

	"github.com/centralrepo/centralrepo/internal/model"
)

// ConditionKind selects how the arguments of a group combine.
type ConditionKind string

const (
	ConditionAll ConditionKind = "all"
	ConditionAny ConditionKind = "any"
)

// Operator is a comparison operator on a document column.
type Operator string

const (
	OpEq      Operator = "eq"
	OpLt      Operator = "lt"
	OpGt      Operator = "gt"
	OpLte     Operator = "lte"
	OpGte     Operator = "gte"
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpILike   Operator = "iLike"
	OpRegex   Operator = "regex"
	OpIRegex  Operator = "regexCaseInsensitive"
)

// Argument matches one document column against a comparison value.
// CompareAgainst holds the JSON-decoded value: float64, string, or
// []any for the in operator.
type Argument struct {
	Column         string   `json:"column"`
	Operator       Operator `json:"comparisonOperator"`
	CompareAgainst any      `json:"compareAgainst"`
}

// Group is a negatable AND/OR bundle of arguments.
type Group struct {
	Not  bool          `json:"not"`
	Kind ConditionKind `json:"conditionKind"`
	Args []Argument    `json:"args"`
}

// SessionFilter narrows a search to records belonging to matching
// upload sessions. Nil fields are not applied.
type SessionFilter struct {
	ID            *int64         `json:"id,omitempty"`
	FormatID      *int64         `json:"formatId,omitempty"`
	UserID        *uuid.UUID     `json:"userId,omitempty"`
	Outcome       *model.Outcome `json:"outcome,omitempty"`
	CreatedAfter  *time.Time     `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time     `json:"createdBefore,omitempty"`
}

// Query is the caller-supplied search request. Formats distinguishes
// nil (no restriction) from an empty list (usage error): an explicit
// empty list would silently match nothing, so it is rejected instead.
type Query struct {
	Formats       *[]int64       `json:"formats,omitempty"`
	UploadSession *SessionFilter `json:"uploadSession,omitempty"`
	Groups        []Group        `json:"query"`
}

// Validate performs the structural checks that need no schema access.
func (q *Query) Validate() error {
	if q.Formats != nil && len(*q.Formats) == 0 {
		return ErrEmptyQuery
	}
	for _, group := range q.Groups {
		switch group.Kind {
		case ConditionAll, ConditionAny, "":
		default:
			return invalidUsage("unknown condition kind %q", group.Kind)
		}
		for _, arg := range group.Args {
			if arg.Column == "" {
				return invalidUsage("argument with empty column name")
			}
		}
	}
	return nil
}

// FormatIDs returns the caller's format id filter, or nil when the
// caller did not restrict formats.
func (q *Query) FormatIDs() []int64 {
	if q.Formats == nil {
		return nil
	}
	return *q.Formats
}
