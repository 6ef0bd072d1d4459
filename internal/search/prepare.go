package search

// prepare.go turns a validated Query plus the resolved readable
// formats into a PreparedQuery. Preparation runs in two strict phases:
//
//  1. Type unification: over the union of the visible formats' schemas,
//     every requested column must map to exactly one kind. Two formats
//     declaring the same column name with different kinds make the
//     query ambiguous, which is rejected before any per-argument check.
//  2. Per-argument validation: each column must exist in the unified
//     mapping and its operator must be legal for the column's kind.

import "github.com/centralrepo/centralrepo/internal/model"

// PreparedQuery is the validated, entitlement-restricted form of a
// Query. It is request-scoped: owned by the request that created it
// and never shared or persisted.
type PreparedQuery struct {
	Formats   []model.Format
	formatIDs []int64
	columns   map[string]model.ColumnKind
	query     *Query
}

// Prepare validates q against the resolved readable formats and
// returns the compiled-condition source. formats must already be
// entitlement-filtered; the mandatory visibility restriction is built
// from exactly this set.
func Prepare(q *Query, formats []model.Format) (*PreparedQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	requested := make(map[string]struct{})
	for _, group := range q.Groups {
		for _, arg := range group.Args {
			requested[arg.Column] = struct{}{}
		}
	}

	// Phase 1: unify requested column kinds across every visible
	// format. This must complete before any argument is validated.
	columns := make(map[string]model.ColumnKind, len(requested))
	for _, format := range formats {
		for _, col := range format.Schema {
			if _, wanted := requested[col.Name]; !wanted {
				continue
			}
			if seen, ok := columns[col.Name]; ok && seen != col.Kind {
				return nil, mixedTypes(col.Name)
			}
			columns[col.Name] = col.Kind
		}
	}

	// Phase 2: per-argument operator/kind validation.
	for _, group := range q.Groups {
		for _, arg := range group.Args {
			kind, ok := columns[arg.Column]
			if !ok {
				return nil, invalidColumn(arg.Column)
			}
			if err := arg.validate(kind); err != nil {
				return nil, err
			}
		}
	}

	ids := make([]int64, len(formats))
	for i, f := range formats {
		ids[i] = f.ID
	}
	return &PreparedQuery{
		Formats:   formats,
		formatIDs: ids,
		columns:   columns,
		query:     q,
	}, nil
}

// FormatIDs returns the readable format id set backing the mandatory
// visibility restriction.
func (p *PreparedQuery) FormatIDs() []int64 { return p.formatIDs }

// Query returns the original caller query (for the debug echo).
func (p *PreparedQuery) Query() *Query { return p.query }

// validate checks that the argument's operator and comparison value
// are legal for the column's kind.
func (a *Argument) validate(kind model.ColumnKind) error {
	switch kind {
	case model.KindNumber:
		return a.validateNumber()
	case model.KindString:
		return a.validateString()
	case model.KindDatetime:
		return a.validateDatetime()
	}
	return invalidUsage("column %q has unsupported kind %q", a.Column, kind)
}

func (a *Argument) validateNumber() error {
	switch a.Operator {
	case OpIn:
		return a.validateArray(isNumeric, "one or more items isn't a number")
	case OpEq, OpLt, OpGt, OpLte, OpGte:
		if !isNumeric(a.CompareAgainst) {
			return invalidUsage("column %q: cannot use numeric operator %q on non-numeric value", a.Column, a.Operator)
		}
		return nil
	}
	return invalidUsage("column %q: operator %q is not valid for number columns", a.Column, a.Operator)
}

func (a *Argument) validateString() error {
	switch a.Operator {
	case OpIn:
		return a.validateArray(func(v any) bool {
			_, ok := v.(string)
			return ok
		}, "one or more items isn't a string")
	case OpEq, OpLike, OpILike, OpRegex, OpIRegex:
		if _, ok := a.CompareAgainst.(string); !ok {
			return invalidUsage("column %q: cannot use operator %q on non-string value", a.Column, a.Operator)
		}
		return nil
	}
	return invalidUsage("column %q: operator %q is not valid for string columns", a.Column, a.Operator)
}

func (a *Argument) validateDatetime() error {
	switch a.Operator {
	case OpIn:
		return a.validateArray(func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			_, ok = model.ParseDatetime(s)
			return ok
		}, "one or more items isn't an ISO datetime")
	case OpEq, OpLt, OpGt, OpLte, OpGte:
		s, ok := a.CompareAgainst.(string)
		if !ok {
			return invalidUsage("column %q: datetime comparisons need an ISO datetime string", a.Column)
		}
		if _, ok := model.ParseDatetime(s); !ok {
			return invalidUsage("column %q: %q is not an ISO datetime", a.Column, s)
		}
		return nil
	}
	return invalidUsage("column %q: operator %q is not valid for datetime columns", a.Column, a.Operator)
}

func (a *Argument) validateArray(valid func(any) bool, message string) error {
	items, ok := a.CompareAgainst.([]any)
	if !ok {
		return invalidUsage("column %q: comparison value isn't an array", a.Column)
	}
	// An empty array is legal and compiles to a never-matching
	// membership test.
	for _, item := range items {
		if !valid(item) {
			return invalidUsage("column %q: %s", a.Column, message)
		}
	}
	return nil
}
