package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Update compiles and runs one UPDATE covering every matched row, returning
// the number of rows changed. Change values validate and coerce exactly like
// create values. An unfiltered update is refused: a full-table write must be
// spelled as an explicit filter on the caller's side.
func (q *QuerySet) Update(ctx context.Context, changes map[string]any) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	if len(q.clauses) == 0 {
		return 0, fmt.Errorf("%w: UPDATE on %s", ErrUnfilteredWrite, q.sch.Table())
	}
	if len(changes) == 0 {
		return 0, fmt.Errorf("update on %s has no changes", q.sch.Table())
	}
	for name := range changes {
		if _, ok := q.sch.Field(name); !ok {
			return 0, &schema.ValidationError{Field: name, Reason: "unknown field"}
		}
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("UPDATE ")
	sb.WriteString(q.sch.Table())
	sb.WriteString(" SET ")

	// SET terms in schema order so the compiled SQL is deterministic.
	// SET arguments bind before WHERE arguments.
	n := 0
	for _, f := range q.sch.Fields() {
		v, ok := changes[f.Name]
		if !ok {
			continue
		}
		sv, err := f.CoerceToStore(v)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Column)
		sb.WriteString(" = ?")
		args = append(args, sv)
		n++
	}

	q.writeWhere(&sb, &args)

	res, err := q.store.Prepare(sb.String()).Bind(args...).Run(ctx)
	if err != nil {
		return 0, runtime.Classify(err, q.sch.Table())
	}
	return res.RowsAffected, nil
}
