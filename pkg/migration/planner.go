// Package migration turns model schemas into DDL and applies it: a planner
// that generates deterministic CREATE TABLE scripts, an engine that applies
// them per model with independent outcomes, and a lockfile that pins the
// generated schema so drift is caught before a deploy rather than after.
package migration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Options configure schema script generation.
type Options struct {
	// IncludeIndexes appends CREATE INDEX statements for unique and
	// foreign-key fields after each table.
	IncludeIndexes bool

	// CleanSlate prefixes the script with DROP TABLE IF EXISTS statements,
	// in reverse order so dependents drop before their targets.
	CleanSlate bool
}

// DefaultOptions returns the options the canonical schema script is
// generated with. Lockfile and tracking hashes are computed over this form.
func DefaultOptions() Options {
	return Options{IncludeIndexes: true}
}

// CreateTableSQL generates the CREATE TABLE statement for one model.
// Columns appear in declaration order, the primary key is declared inline,
// and foreign keys and checks follow as named table-level constraints. The
// output is deterministic for a given schema and safe to run repeatedly.
func CreateTableSQL(sch *schema.Schema) string {
	var parts []string

	for _, f := range sch.Fields() {
		parts = append(parts, "    "+columnDefinition(f))
	}

	for _, f := range sch.Fields() {
		if f.RefTable == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("    CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s)",
			sch.Table(), f.Column, f.Column, f.RefTable, f.RefColumn))
	}

	for _, c := range sch.Checks() {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)", c.Name, c.Expr))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", sch.Table(), strings.Join(parts, ",\n"))
}

// columnDefinition generates one column clause: name, store type, then
// NOT NULL, DEFAULT, and UNIQUE in that order.
func columnDefinition(f schema.Field) string {
	parts := []string{f.Column, f.Kind.StoreType(f.MaxLength)}

	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
		return strings.Join(parts, " ")
	}

	if f.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if f.HasDefault {
		parts = append(parts, "DEFAULT", defaultLiteral(f))
	}
	if f.Unique {
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " ")
}

// defaultLiteral renders a static default in its store encoding: booleans as
// 0/1, timestamps as epoch seconds, strings and documents quoted. Dynamic
// defaults are applied at insert time and never appear in DDL.
func defaultLiteral(f schema.Field) string {
	v, err := f.CoerceToStore(f.Default)
	if err != nil || v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IndexSQL generates the index statements for a model: a unique index per
// unique field and a plain index per foreign key. The primary key needs
// neither.
func IndexSQL(sch *schema.Schema) []string {
	var stmts []string
	for _, f := range sch.Fields() {
		switch {
		case f.PrimaryKey:
		case f.Unique:
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s);",
				sch.Table(), f.Column, sch.Table(), f.Column))
		case f.RefTable != "":
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s);",
				sch.Table(), f.Column, sch.Table(), f.Column))
		}
	}
	return stmts
}

// SchemaSQL generates the full schema script for the models in order:
// optional DROP statements first, then each model's CREATE TABLE followed by
// its indexes. The script is plain SQL; callers may execute it or hand it to
// an offline tool.
func SchemaSQL(schemas []*schema.Schema, opts Options) string {
	var b strings.Builder

	if opts.CleanSlate {
		for i := len(schemas) - 1; i >= 0; i-- {
			b.WriteString("DROP TABLE IF EXISTS ")
			b.WriteString(schemas[i].Table())
			b.WriteString(";\n")
		}
		b.WriteString("\n")
	}

	for i, sch := range schemas {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(CreateTableSQL(sch))
		b.WriteString("\n")
		if opts.IncludeIndexes {
			for _, idx := range IndexSQL(sch) {
				b.WriteString(idx)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// modelSQL is the script applied for one model and the text its hashes are
// computed over.
func modelSQL(sch *schema.Schema, opts Options) string {
	var b strings.Builder
	b.WriteString(CreateTableSQL(sch))
	if opts.IncludeIndexes {
		for _, idx := range IndexSQL(sch) {
			b.WriteString("\n")
			b.WriteString(idx)
		}
	}
	return b.String()
}
