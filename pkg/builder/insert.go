package builder

import (
	"strings"
	"time"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// insertSQL compiles a multi-row INSERT with an explicit column list and one
// placeholder per value.
func insertSQL(table string, cols []string, rowCount int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}
	return sb.String()
}

// checkKnownFields rejects creation values whose keys are not schema fields.
func checkKnownFields(sch *schema.Schema, values map[string]any) error {
	for name := range values {
		if _, ok := sch.Field(name); !ok {
			return &schema.ValidationError{Field: name, Reason: "unknown field"}
		}
	}
	return nil
}

// applyDefaults fills creation defaults into a copy of values. Per field:
// the static default, then the generated default, then the auto-now stamp,
// first match wins. Fields the caller set are never touched.
func applyDefaults(sch *schema.Schema, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range sch.Fields() {
		if f.PrimaryKey {
			continue
		}
		if _, ok := out[f.Name]; ok {
			continue
		}
		switch {
		case f.HasDefault:
			out[f.Name] = f.Default
		case f.DefaultFunc != nil:
			out[f.Name] = f.DefaultFunc()
		case f.AutoNowAdd:
			out[f.Name] = time.Now().UTC()
		}
	}
	return out
}

// insertFields picks the INSERT column set: every non-key field in schema
// order, plus the primary key when the caller supplied one explicitly.
func insertFields(sch *schema.Schema, values map[string]any) []schema.Field {
	fields := make([]schema.Field, 0, len(sch.Fields()))
	for _, f := range sch.Fields() {
		if f.PrimaryKey {
			if v, ok := values[f.Name]; ok && v != nil {
				fields = append(fields, f)
			}
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// nonKeyFields returns every field except the primary key, in schema order.
func nonKeyFields(sch *schema.Schema) []schema.Field {
	fields := make([]schema.Field, 0, len(sch.Fields())-1)
	for _, f := range sch.Fields() {
		if !f.PrimaryKey {
			fields = append(fields, f)
		}
	}
	return fields
}

func columnNames(fields []schema.Field) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return cols
}

// rowArgs coerces one creation row into store values aligned with fields.
// Absent values coerce as nil, so a missing required field fails here.
func rowArgs(fields []schema.Field, values map[string]any) ([]any, error) {
	args := make([]any, len(fields))
	for i, f := range fields {
		sv, err := f.CoerceToStore(values[f.Name])
		if err != nil {
			return nil, err
		}
		args[i] = sv
	}
	return args, nil
}
