package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// projectedFields resolves the active projection to schema fields, in the
// projection's order, defaulting to the full schema order.
func (q *QuerySet) projectedFields() []schema.Field {
	if len(q.project) == 0 {
		return q.sch.Fields()
	}
	out := make([]schema.Field, len(q.project))
	for i, name := range q.project {
		f, _ := q.sch.Field(name)
		out[i] = f
	}
	return out
}

// ToSQL returns the compiled SELECT with its bound arguments, for inspection
// and tests.
func (q *QuerySet) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	sqlText, args := q.selectSQL(nil)
	return sqlText, args, nil
}

// selectSQL compiles the SELECT. limitOverride substitutes the chain's limit
// when a terminal needs its own row cap. Column lists are always explicit;
// a star projection would make per-row cost depend on whatever the table
// happens to contain.
func (q *QuerySet) selectSQL(limitOverride *int) (string, []any) {
	var sb strings.Builder
	var args []any

	fields := q.projectedFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(q.sch.Table())

	q.writeWhere(&sb, &args)

	if len(q.order) > 0 {
		sb.WriteString(" ORDER BY ")
		terms := make([]string, len(q.order))
		for i, o := range q.order {
			if o.desc {
				terms[i] = o.column + " DESC"
			} else {
				terms[i] = o.column + " ASC"
			}
		}
		sb.WriteString(strings.Join(terms, ", "))
	}

	limit := q.limit
	if limitOverride != nil {
		limit = limitOverride
	}
	if limit != nil {
		fmt.Fprintf(&sb, " LIMIT %d", *limit)
	} else if q.offset != nil {
		// The store accepts OFFSET only after LIMIT; -1 means unlimited.
		sb.WriteString(" LIMIT -1")
	}
	if q.offset != nil {
		fmt.Fprintf(&sb, " OFFSET %d", *q.offset)
	}

	return sb.String(), args
}

// writeWhere renders the accumulated clauses under a single top-level AND.
func (q *QuerySet) writeWhere(sb *strings.Builder, args *[]any) {
	if len(q.clauses) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	for i, cl := range q.clauses {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		cl.render(sb, args)
	}
}

// lookupDescription renders the accumulated filters for error messages.
func (q *QuerySet) lookupDescription() string {
	if len(q.clauses) == 0 {
		return "<no filters>"
	}
	parts := make([]string, len(q.clauses))
	for i, cl := range q.clauses {
		parts[i] = cl.describe()
	}
	return strings.Join(parts, " AND ")
}

func (q *QuerySet) ready() error {
	if q.err != nil {
		return q.err
	}
	if q.store == nil {
		return runtime.ErrNoStore
	}
	return nil
}

// AllRows executes the query and returns rows exactly as the store produced
// them, without per-field coercion.
func (q *QuerySet) AllRows(ctx context.Context) ([]runtime.Row, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	sqlText, args := q.selectSQL(nil)
	rows, err := q.store.Prepare(sqlText).Bind(args...).All(ctx)
	if err != nil {
		return nil, runtime.Classify(err, q.sch.Table())
	}
	return rows, nil
}

// FirstRow returns the first raw row, or nil when nothing matches.
func (q *QuerySet) FirstRow(ctx context.Context) (runtime.Row, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	one := 1
	sqlText, args := q.selectSQL(&one)
	row, err := q.store.Prepare(sqlText).Bind(args...).First(ctx)
	if err != nil {
		return nil, runtime.Classify(err, q.sch.Table())
	}
	return row, nil
}

// All executes the query and materializes instances, coercing each projected
// column through its field descriptor.
func (q *QuerySet) All(ctx context.Context) ([]*Instance, error) {
	rows, err := q.AllRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, len(rows))
	for i, row := range rows {
		inst, err := newInstanceFromRow(q.sch, q.store, row)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

// First returns the first matching instance, or nil when nothing matches.
func (q *QuerySet) First(ctx context.Context) (*Instance, error) {
	row, err := q.FirstRow(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return newInstanceFromRow(q.sch, q.store, row)
}

// Get returns exactly one matching instance. Zero matches fail with
// DoesNotExistError and two or more with AmbiguousResultError. The probe
// reads at most two rows; it never counts.
func (q *QuerySet) Get(ctx context.Context) (*Instance, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	two := 2
	sqlText, args := q.selectSQL(&two)
	rows, err := q.store.Prepare(sqlText).Bind(args...).All(ctx)
	if err != nil {
		return nil, runtime.Classify(err, q.sch.Table())
	}
	switch len(rows) {
	case 0:
		return nil, &runtime.DoesNotExistError{Model: q.sch.Name(), Lookup: q.lookupDescription()}
	case 1:
		return newInstanceFromRow(q.sch, q.store, rows[0])
	default:
		return nil, &runtime.AmbiguousResultError{Model: q.sch.Name(), Lookup: q.lookupDescription()}
	}
}

// Count runs SELECT COUNT(*) honoring the filters. Ordering, limits, and
// projection do not apply.
func (q *QuerySet) Count(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT COUNT(*) AS n FROM ")
	sb.WriteString(q.sch.Table())
	q.writeWhere(&sb, &args)

	row, err := q.store.Prepare(sb.String()).Bind(args...).First(ctx)
	if err != nil {
		return 0, runtime.Classify(err, q.sch.Table())
	}
	if row == nil {
		return 0, nil
	}
	switch n := row["n"].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("store returned %T for a count", row["n"])
	}
}

// Exists probes for one matching row with SELECT 1 ... LIMIT 1, so the scan
// stops at the first match instead of counting the rest.
func (q *QuerySet) Exists(ctx context.Context) (bool, error) {
	if err := q.ready(); err != nil {
		return false, err
	}
	var sb strings.Builder
	var args []any
	sb.WriteString("SELECT 1 FROM ")
	sb.WriteString(q.sch.Table())
	q.writeWhere(&sb, &args)
	sb.WriteString(" LIMIT 1")

	row, err := q.store.Prepare(sb.String()).Bind(args...).First(ctx)
	if err != nil {
		return false, runtime.Classify(err, q.sch.Table())
	}
	return row != nil, nil
}
