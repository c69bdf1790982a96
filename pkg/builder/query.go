// Package builder compiles model metadata into parameterized SQLite
// statements and executes them against a Store: a chainable query engine,
// a per-model manager, and row-backed instances.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// MaxOffset bounds OFFSET values. The store implements offset as a linear
// skip, so the ceiling bounds worst-case scan cost.
const MaxOffset = 100000

// ErrUnfilteredWrite is returned when Update or Delete runs on a chain with
// no filters. Full-table writes are never run implicitly.
var ErrUnfilteredWrite = errors.New("refusing unfiltered write")

// Operator represents a filter comparison.
type Operator string

const (
	// OpEqual represents the = operator.
	OpEqual Operator = "="
	// OpNotEqual represents the != operator.
	OpNotEqual Operator = "!="
	// OpGreaterThan represents the > operator.
	OpGreaterThan Operator = ">"
	// OpGreaterThanOrEqual represents the >= operator.
	OpGreaterThanOrEqual Operator = ">="
	// OpLessThan represents the < operator.
	OpLessThan Operator = "<"
	// OpLessThanOrEqual represents the <= operator.
	OpLessThanOrEqual Operator = "<="
	// OpIn represents the IN operator.
	OpIn Operator = "IN"
	// OpContains represents a substring match, compiled to LIKE.
	OpContains Operator = "CONTAINS"
	// OpIContains represents a case-folded substring match.
	OpIContains Operator = "ICONTAINS"
	// OpIsNull represents the IS NULL test.
	OpIsNull Operator = "IS NULL"
	// OpIsNotNull represents the IS NOT NULL test.
	OpIsNotNull Operator = "IS NOT NULL"
)

// Filter is one comparison against a schema field. Build filters with the
// constructors in this package; field names are validated when the filter is
// attached to a chain.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

type orderTerm struct {
	column string
	desc   bool
}

// QuerySet is an immutable chain of refinements over one model. Every step
// returns a derived copy, so a prefix can be shared and extended in
// different directions safely. The first invalid step records a build error
// that every later copy carries; terminals surface it without touching the
// store.
type QuerySet struct {
	sch     *schema.Schema
	store   runtime.Store
	clauses []clause
	order   []orderTerm
	limit   *int
	offset  *int
	project []string
	err     error
}

// NewQuerySet returns an empty chain over sch, executing against store.
func NewQuerySet(sch *schema.Schema, store runtime.Store) *QuerySet {
	return &QuerySet{sch: sch, store: store}
}

func (q *QuerySet) clone() *QuerySet {
	c := *q
	c.clauses = append([]clause(nil), q.clauses...)
	c.order = append([]orderTerm(nil), q.order...)
	c.project = append([]string(nil), q.project...)
	if q.limit != nil {
		n := *q.limit
		c.limit = &n
	}
	if q.offset != nil {
		n := *q.offset
		c.offset = &n
	}
	return &c
}

// Err reports the first build error recorded on the chain, if any. Terminals
// return the same error, so checking Err is only needed when a chain is
// assembled long before it runs.
func (q *QuerySet) Err() error { return q.err }

// Filter adds conditions, combined with any existing ones under the single
// top-level AND.
func (q *QuerySet) Filter(filters ...Filter) *QuerySet {
	return q.addFilters(false, filters)
}

// Exclude adds negated conditions: each one compiles wrapped in NOT.
func (q *QuerySet) Exclude(filters ...Filter) *QuerySet {
	return q.addFilters(true, filters)
}

func (q *QuerySet) addFilters(negate bool, filters []Filter) *QuerySet {
	if q.err != nil {
		return q
	}
	c := q.clone()
	for _, f := range filters {
		cl, err := compileFilter(c.sch, f)
		if err != nil {
			c.err = err
			return c
		}
		cl.not = negate
		c.clauses = append(c.clauses, cl)
	}
	return c
}

// OrderBy replaces the chain's ordering. A leading '-' sorts that field
// descending.
func (q *QuerySet) OrderBy(fields ...string) *QuerySet {
	if q.err != nil {
		return q
	}
	c := q.clone()
	c.order = nil
	for _, spec := range fields {
		name, desc := strings.CutPrefix(spec, "-")
		fld, ok := c.sch.Field(name)
		if !ok {
			c.err = &schema.ValidationError{Field: name, Reason: "unknown field in ordering"}
			return c
		}
		c.order = append(c.order, orderTerm{column: fld.Column, desc: desc})
	}
	return c
}

// Limit caps the number of rows a read returns.
func (q *QuerySet) Limit(n int) *QuerySet {
	if q.err != nil {
		return q
	}
	c := q.clone()
	if n < 0 {
		c.err = fmt.Errorf("limit cannot be negative, got %d", n)
		return c
	}
	c.limit = &n
	return c
}

// Offset skips rows before the first returned one. Offsets above MaxOffset
// fail at build time.
func (q *QuerySet) Offset(n int) *QuerySet {
	if q.err != nil {
		return q
	}
	c := q.clone()
	switch {
	case n < 0:
		c.err = fmt.Errorf("offset cannot be negative, got %d", n)
	case n > MaxOffset:
		c.err = fmt.Errorf("offset %d exceeds the maximum of %d", n, MaxOffset)
	default:
		c.offset = &n
	}
	return c
}

// Only restricts the SELECT list to the named fields, in the given order.
// Later calls replace earlier projections; no fields restores the full
// schema projection. Projection applies to row reads and instance reads
// alike and never affects Count or Exists.
func (q *QuerySet) Only(fields ...string) *QuerySet {
	if q.err != nil {
		return q
	}
	c := q.clone()
	c.project = nil
	for _, name := range fields {
		if _, ok := c.sch.Field(name); !ok {
			c.err = &schema.ValidationError{Field: name, Reason: "unknown field in projection"}
			return c
		}
		c.project = append(c.project, name)
	}
	return c
}
