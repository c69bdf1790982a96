package builder

import (
	"fmt"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Eq creates an equality condition.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// NotEq creates a not-equal condition.
func NotEq(field string, value any) Filter {
	return Filter{Field: field, Op: OpNotEqual, Value: value}
}

// Gt creates a greater-than condition.
func Gt(field string, value any) Filter {
	return Filter{Field: field, Op: OpGreaterThan, Value: value}
}

// Gte creates a greater-than-or-equal condition.
func Gte(field string, value any) Filter {
	return Filter{Field: field, Op: OpGreaterThanOrEqual, Value: value}
}

// Lt creates a less-than condition.
func Lt(field string, value any) Filter {
	return Filter{Field: field, Op: OpLessThan, Value: value}
}

// Lte creates a less-than-or-equal condition.
func Lte(field string, value any) Filter {
	return Filter{Field: field, Op: OpLessThanOrEqual, Value: value}
}

// In creates a membership condition with one placeholder per value. At least
// one value is required.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

// Contains creates a case-sensitive substring condition on a string field.
func Contains(field string, term string) Filter {
	return Filter{Field: field, Op: OpContains, Value: term}
}

// IContains creates a case-folded substring condition on a string field.
// Folding happens on both sides with the store's LOWER(), which folds ASCII
// only; non-ASCII case folding is a known limitation of the store.
func IContains(field string, term string) Filter {
	return Filter{Field: field, Op: OpIContains, Value: term}
}

// IsNull tests a field for NULL when isNull is true, NOT NULL otherwise.
func IsNull(field string, isNull bool) Filter {
	return Filter{Field: field, Op: OpIsNull, Value: isNull}
}

// clause is a validated filter: column resolved, values coerced to their
// store representation.
type clause struct {
	field  string
	column string
	op     Operator
	args   []any
	not    bool
}

// compileFilter validates a filter against the schema and coerces its value.
// All failures here are build errors raised before any store round trip.
func compileFilter(sch *schema.Schema, f Filter) (clause, error) {
	fld, ok := sch.Field(f.Field)
	if !ok {
		return clause{}, &schema.ValidationError{Field: f.Field, Reason: "unknown field"}
	}
	cl := clause{field: f.Field, column: fld.Column, op: f.Op}

	switch f.Op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		if f.Value == nil {
			return clause{}, &schema.ValidationError{Field: f.Field, Reason: "cannot compare to nil, use IsNull"}
		}
		v, err := fld.CoerceToStore(f.Value)
		if err != nil {
			return clause{}, err
		}
		cl.args = []any{v}

	case OpIn:
		values, ok := f.Value.([]any)
		if !ok || len(values) == 0 {
			return clause{}, &schema.ValidationError{Field: f.Field, Reason: "IN requires at least one value"}
		}
		cl.args = make([]any, len(values))
		for i, raw := range values {
			v, err := fld.CoerceToStore(raw)
			if err != nil {
				return clause{}, err
			}
			cl.args[i] = v
		}

	case OpContains, OpIContains:
		if fld.Kind != schema.KindString {
			return clause{}, &schema.ValidationError{Field: f.Field, Reason: "substring match requires a string field"}
		}
		term, ok := f.Value.(string)
		if !ok {
			return clause{}, &schema.ValidationError{Field: f.Field, Reason: fmt.Sprintf("expected string term, got %T", f.Value), Value: f.Value}
		}
		if f.Op == OpIContains {
			term = asciiLower(term)
		}
		cl.args = []any{"%" + escapeLike(term) + "%"}

	case OpIsNull:
		isNull, ok := f.Value.(bool)
		if !ok {
			return clause{}, &schema.ValidationError{Field: f.Field, Reason: "IsNull requires a boolean", Value: f.Value}
		}
		if !isNull {
			cl.op = OpIsNotNull
		}

	default:
		return clause{}, fmt.Errorf("unknown operator %q", f.Op)
	}

	return cl, nil
}

// render writes the clause's SQL fragment and appends its bound arguments.
// The pattern of a substring match is always bound, never interpolated.
func (c clause) render(sb *strings.Builder, args *[]any) {
	var expr string
	switch c.op {
	case OpIn:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.args)), ", ")
		expr = c.column + " IN (" + placeholders + ")"
		*args = append(*args, c.args...)
	case OpIsNull:
		expr = c.column + " IS NULL"
	case OpIsNotNull:
		expr = c.column + " IS NOT NULL"
	case OpContains:
		expr = c.column + ` LIKE ? ESCAPE '\'`
		*args = append(*args, c.args...)
	case OpIContains:
		expr = "LOWER(" + c.column + `) LIKE ? ESCAPE '\'`
		*args = append(*args, c.args...)
	default:
		expr = fmt.Sprintf("%s %s ?", c.column, c.op)
		*args = append(*args, c.args...)
	}
	if c.not {
		expr = "NOT (" + expr + ")"
	}
	sb.WriteString(expr)
}

// describe renders the clause for error messages, by logical field name.
func (c clause) describe() string {
	var s string
	switch c.op {
	case OpIsNull, OpIsNotNull:
		s = c.field + " " + string(c.op)
	case OpIn:
		s = fmt.Sprintf("%s IN %v", c.field, c.args)
	case OpContains, OpIContains:
		s = fmt.Sprintf("%s LIKE %v", c.field, c.args[0])
	default:
		s = fmt.Sprintf("%s %s %v", c.field, c.op, c.args[0])
	}
	if c.not {
		s = "NOT " + s
	}
	return s
}

// escapeLike escapes the LIKE wildcards and the escape character itself, so
// a search term containing % or _ matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// asciiLower folds ASCII letters only, matching the fold the store's LOWER()
// applies to the column side.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
