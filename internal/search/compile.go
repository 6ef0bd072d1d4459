package search

// compile.go lowers a PreparedQuery into a parameterized SQL condition
// over the record table. Document columns are addressed with the JSONB
// text accessor (data->>col); number columns get an explicit ::float8
// cast and datetime columns a ::timestamptz cast, because the JSONB
// text form is otherwise untyped. The readable-format visibility
// restriction is unconditionally ANDed in and cannot be bypassed by
// caller input.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/centralrepo/centralrepo/internal/model"
)

// Condition is a compiled WHERE fragment with positional arguments.
// SQL references $startArg..$(startArg+len(Args)-1).
type Condition struct {
	SQL  string
	Args []any
}

// NextArg returns the first placeholder index available after the
// condition's own arguments, given the index it was compiled with.
func (c *Condition) NextArg(startArg int) int { return startArg + len(c.Args) }

type builder struct {
	args []any
	next int
}

// bind registers an argument and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	p := "$" + strconv.Itoa(b.next)
	b.next++
	return p
}

// Compile builds the full record filter: visibility restriction,
// optional upload-session sub-filter, and the caller's condition tree.
// startArg is the first free placeholder index.
func (p *PreparedQuery) Compile(startArg int) (*Condition, error) {
	b := &builder{next: startArg}
	conds := make([]string, 0, 2+len(p.query.Groups))

	// Mandatory visibility restriction: only records whose owning
	// session belongs to a readable format.
	conds = append(conds, fmt.Sprintf(
		"upload_session_id IN (SELECT id FROM upload_session WHERE format_id = ANY(%s))",
		b.bind(p.formatIDs)))

	if f := p.query.UploadSession; f != nil {
		conds = append(conds, compileSessionFilter(f, b))
	}

	for _, group := range p.query.Groups {
		sql, err := p.compileGroup(&group, b)
		if err != nil {
			return nil, err
		}
		if sql != "" {
			conds = append(conds, sql)
		}
	}

	return &Condition{SQL: strings.Join(conds, " AND "), Args: b.args}, nil
}

// compileSessionFilter builds the upload-session sub-query restriction.
func compileSessionFilter(f *SessionFilter, b *builder) string {
	var conds []string
	if f.ID != nil {
		conds = append(conds, "id = "+b.bind(*f.ID))
	}
	if f.FormatID != nil {
		conds = append(conds, "format_id = "+b.bind(*f.FormatID))
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = "+b.bind(*f.UserID))
	}
	if f.Outcome != nil {
		conds = append(conds, "outcome = "+b.bind(string(*f.Outcome)))
	}
	if f.CreatedAfter != nil {
		conds = append(conds, "created_at >= "+b.bind(*f.CreatedAfter))
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "created_at <= "+b.bind(*f.CreatedBefore))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	return "upload_session_id IN (SELECT id FROM upload_session" + where + ")"
}

// compileGroup builds one AND/OR group, negated when requested.
func (p *PreparedQuery) compileGroup(group *Group, b *builder) (string, error) {
	if len(group.Args) == 0 {
		return "", nil
	}
	joiner := " AND "
	if group.Kind == ConditionAny {
		joiner = " OR "
	}
	parts := make([]string, 0, len(group.Args))
	for _, arg := range group.Args {
		sql, err := p.compileArgument(&arg, b)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	sql := "(" + strings.Join(parts, joiner) + ")"
	if group.Not {
		sql = "NOT " + sql
	}
	return sql, nil
}

// compileArgument builds the column access expression for one argument
// and applies its operator.
func (p *PreparedQuery) compileArgument(arg *Argument, b *builder) (string, error) {
	kind, ok := p.columns[arg.Column]
	if !ok {
		return "", invalidColumn(arg.Column)
	}

	expr := "data->>" + b.bind(arg.Column)
	switch kind {
	case model.KindNumber:
		expr = "(" + expr + ")::float8"
	case model.KindDatetime:
		expr = "(" + expr + ")::timestamptz"
	}

	if arg.Operator == OpIn {
		array, err := castArray(kind, arg.CompareAgainst)
		if err != nil {
			return "", err
		}
		return expr + " = ANY(" + b.bind(array) + ")", nil
	}

	op, ok := sqlOperators[arg.Operator]
	if !ok {
		return "", invalidUsage("column %q: unknown operator %q", arg.Column, arg.Operator)
	}
	value, err := castScalar(kind, arg.CompareAgainst)
	if err != nil {
		return "", err
	}
	return expr + " " + op + " " + b.bind(value), nil
}

// sqlOperators maps validated operators to their SQL spelling. Regex
// matching uses the postgres ~ / ~* operators.
var sqlOperators = map[Operator]string{
	OpEq:     "=",
	OpLt:     "<",
	OpGt:     ">",
	OpLte:    "<=",
	OpGte:    ">=",
	OpLike:   "LIKE",
	OpILike:  "ILIKE",
	OpRegex:  "~",
	OpIRegex: "~*",
}

// castScalar converts a comparison value into the column's backing
// type. Operator/kind legality was established during preparation, so
// only representability can fail here.
func castScalar(kind model.ColumnKind, v any) (any, error) {
	switch kind {
	case model.KindNumber:
		return toFloat64(v)
	case model.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrCast
		}
		return s, nil
	case model.KindDatetime:
		s, ok := v.(string)
		if !ok {
			return nil, ErrCast
		}
		t, ok := model.ParseDatetime(s)
		if !ok {
			return nil, ErrCast
		}
		return t, nil
	}
	return nil, ErrCast
}

// castArray converts an in-operator array into a homogeneously typed
// slice pgx can bind to ANY($n).
func castArray(kind model.ColumnKind, v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, ErrCast
	}
	switch kind {
	case model.KindNumber:
		out := make([]float64, len(items))
		for i, item := range items {
			f, err := toFloat64(item)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case model.KindString:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, ErrCast
			}
			out[i] = s
		}
		return out, nil
	case model.KindDatetime:
		out := make([]time.Time, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, ErrCast
			}
			t, ok := model.ParseDatetime(s)
			if !ok {
				return nil, ErrCast
			}
			out[i] = t
		}
		return out, nil
	}
	return nil, ErrCast
}

// toFloat64 accepts the two numeric shapes a JSON decoder can produce.
// A json.Number that does not fit a 64-bit float is a cast failure.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, ErrCast
		}
		return f, nil
	}
	return 0, ErrCast
}

// isNumeric reports whether v is a JSON number in either decoder shape.
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, json.Number:
		return true
	}
	return false
}
