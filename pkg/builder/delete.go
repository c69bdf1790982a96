package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
)

// Delete compiles and runs one DELETE covering every matched row, returning
// the number of rows removed. The unfiltered-write guard from Update applies
// here too.
func (q *QuerySet) Delete(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	if len(q.clauses) == 0 {
		return 0, fmt.Errorf("%w: DELETE on %s", ErrUnfilteredWrite, q.sch.Table())
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("DELETE FROM ")
	sb.WriteString(q.sch.Table())
	q.writeWhere(&sb, &args)

	res, err := q.store.Prepare(sb.String()).Bind(args...).Run(ctx)
	if err != nil {
		return 0, runtime.Classify(err, q.sch.Table())
	}
	return res.RowsAffected, nil
}
