package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flatscout/flatscout/internal/domain"
)

// dateLayouts accepted for date-typed clause values, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// compiledClause is a clause with its value coerced to the field's kind.
type compiledClause struct {
	field string
	op    Op
	value domain.FieldValue
}

// CompiledPredicate is a validated, type-coerced filter, safe to evaluate
// against any number of listings without re-parsing and safe to hand to a
// query store: user text only ever appears as a bind parameter, never as SQL.
type CompiledPredicate struct {
	clauses []compiledClause
}

// Compile validates clauses against the schema and coerces their values.
// All type errors surface here; evaluating the result cannot fail.
func Compile(clauses []Clause, schema domain.Schema) (*CompiledPredicate, error) {
	compiled := make([]compiledClause, 0, len(clauses))
	for _, c := range clauses {
		kind, ok := schema[c.Field]
		if !ok {
			return nil, &domain.UnknownFieldError{Field: c.Field}
		}

		value, err := coerce(c, kind)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledClause{field: c.Field, op: c.Op, value: value})
	}
	return &CompiledPredicate{clauses: compiled}, nil
}

func coerce(c Clause, kind domain.FieldKind) (domain.FieldValue, error) {
	switch kind {
	case domain.KindNumeric:
		n, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return domain.FieldValue{}, &domain.TypeMismatchError{Field: c.Field, Value: c.Value, Kind: kind}
		}
		return domain.FieldValue{Kind: kind, Num: n}, nil
	case domain.KindDate:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, c.Value); err == nil {
				return domain.FieldValue{Kind: kind, Date: d}, nil
			}
		}
		return domain.FieldValue{}, &domain.TypeMismatchError{Field: c.Field, Value: c.Value, Kind: kind}
	default:
		return domain.FieldValue{Kind: kind, Text: c.Value}, nil
	}
}

// Matches reports whether every clause holds for the listing. A clause on a
// field the listing does not carry is false: missing data never matches.
func (p *CompiledPredicate) Matches(l domain.Listing) bool {
	for _, c := range p.clauses {
		got, ok := l.Field(c.field)
		if !ok {
			return false
		}
		if !holds(c.op, got.Compare(c.value)) {
			return false
		}
	}
	return true
}

func holds(op Op, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGe:
		return cmp >= 0
	case OpLe:
		return cmp <= 0
	default:
		return false
	}
}

// Len returns the number of clauses.
func (p *CompiledPredicate) Len() int { return len(p.clauses) }

// SQL renders the predicate as a parameterized WHERE fragment for the
// listing store, with placeholders numbered from firstParam. Field names come
// from the schema check in Compile, so only trusted identifiers reach the
// query text. An empty predicate renders as "TRUE".
func (p *CompiledPredicate) SQL(firstParam int) (string, []any) {
	if len(p.clauses) == 0 {
		return "TRUE", nil
	}

	conds := make([]string, 0, len(p.clauses))
	args := make([]any, 0, len(p.clauses))
	for i, c := range p.clauses {
		conds = append(conds, fmt.Sprintf("%s %s $%d", c.field, sqlOp(c.op), firstParam+i))
		args = append(args, sqlArg(c.value))
	}
	return strings.Join(conds, " AND "), args
}

func sqlOp(op Op) string {
	if op == OpNe {
		return "<>"
	}
	return string(op)
}

func sqlArg(v domain.FieldValue) any {
	switch v.Kind {
	case domain.KindNumeric:
		return v.Num
	case domain.KindDate:
		return v.Date
	default:
		return v.Text
	}
}
