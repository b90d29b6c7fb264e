// Package filter parses and compiles the listing filter language.
//
// A filter string is a semicolon-separated list of clauses, each
// field/operator/value, combined with implicit AND:
//
//	rent<500;size>=20;city=Berlin
//
// Parsing is purely syntactic; field names and value types are checked
// against the listing schema by Compile.
package filter

import (
	"fmt"
	"strings"
)

// Op is a comparison operator of the filter language.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpGt Op = ">"
	OpLt Op = "<"
	OpGe Op = ">="
	OpLe Op = "<="
)

// operators in longest-match-first order, so ">=" wins over ">" and "!" is
// only ever legal as part of "!=".
var operators = []Op{OpGe, OpLe, OpNe, OpGt, OpLt, OpEq}

// Clause is one field/operator/value unit, value kept as raw text until
// compilation coerces it.
type Clause struct {
	Field string
	Op    Op
	Value string
}

// ParseError reports a malformed filter fragment. User-input problem,
// recoverable by re-entering the filter.
type ParseError struct {
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse filter: %s in %q", e.Reason, e.Fragment)
}

// Parse splits a filter string into its ordered clause sequence. An empty
// input yields an empty sequence (matches everything). Clauses are kept
// verbatim in input order and never deduplicated: "rent<500;rent>500" is two
// clauses that jointly match nothing, which is correct AND semantics.
func Parse(s string) ([]Clause, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	fragments := strings.Split(s, ";")
	clauses := make([]Clause, 0, len(fragments))
	for _, frag := range fragments {
		clause, err := parseClause(strings.TrimSpace(frag))
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func parseClause(frag string) (Clause, error) {
	if frag == "" {
		return Clause{}, &ParseError{Fragment: frag, Reason: "empty clause"}
	}

	field, op, value, ok := splitOnOperator(frag)
	if !ok {
		return Clause{}, &ParseError{Fragment: frag, Reason: "no operator found"}
	}
	if field == "" {
		return Clause{}, &ParseError{Fragment: frag, Reason: "field name required"}
	}
	if strings.ContainsAny(field, "!") {
		// A bare "!" before the operator means something like "a!b=c".
		return Clause{}, &ParseError{Fragment: frag, Reason: `"!" is only valid as "!="`}
	}
	if value == "" {
		return Clause{}, &ParseError{Fragment: frag, Reason: "value required"}
	}

	return Clause{Field: field, Op: op, Value: value}, nil
}

// splitOnOperator finds the earliest operator occurrence, trying the
// two-character operators first at each position.
func splitOnOperator(frag string) (field string, op Op, value string, ok bool) {
	for i := 0; i < len(frag); i++ {
		for _, candidate := range operators {
			if strings.HasPrefix(frag[i:], string(candidate)) {
				field = strings.TrimSpace(frag[:i])
				value = strings.TrimSpace(frag[i+len(candidate):])
				return field, candidate, value, true
			}
		}
	}
	return "", "", "", false
}
