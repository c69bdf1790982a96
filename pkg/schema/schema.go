package schema

import (
	"fmt"
	"strings"
)

const maxIdentifierLength = 64

// reservedWords are SQL keywords refused as table or column names. Matching
// is case-insensitive.
var reservedWords = map[string]struct{}{
	"add": {}, "all": {}, "alter": {}, "and": {}, "as": {}, "asc": {},
	"begin": {}, "between": {}, "by": {}, "case": {}, "check": {},
	"column": {}, "commit": {}, "constraint": {}, "create": {}, "default": {},
	"delete": {}, "desc": {}, "distinct": {}, "drop": {}, "else": {},
	"end": {}, "exists": {}, "foreign": {}, "from": {}, "group": {},
	"having": {}, "in": {}, "index": {}, "insert": {}, "into": {}, "is": {},
	"join": {}, "key": {}, "like": {}, "limit": {}, "not": {}, "null": {},
	"offset": {}, "on": {}, "or": {}, "order": {}, "primary": {},
	"references": {}, "rollback": {}, "select": {}, "set": {}, "table": {},
	"then": {}, "transaction": {}, "union": {}, "unique": {}, "update": {},
	"values": {}, "when": {}, "where": {},
}

// validateIdentifier enforces the naming rules for tables and columns:
// leading letter or underscore, word characters only, bounded length, and no
// SQL keywords. Identifiers are the only schema-supplied text that reaches
// generated SQL, so they are screened here once rather than at query time.
func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier %q exceeds %d characters", name, maxIdentifierLength)
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("identifier %q cannot start with a digit", name)
			}
		default:
			return fmt.Errorf("identifier %q contains invalid character %q", name, r)
		}
	}
	if _, ok := reservedWords[strings.ToLower(name)]; ok {
		return fmt.Errorf("identifier %q is a reserved word", name)
	}
	return nil
}

// SchemaOption configures schema-level settings.
type SchemaOption func(*Schema)

// WithName overrides the logical model name. The default is the table name
// in UpperCamelCase.
func WithName(name string) SchemaOption {
	return func(s *Schema) { s.name = name }
}

// Check attaches a named table-level CHECK constraint. The expression is
// emitted into DDL verbatim; it must not contain untrusted input.
func Check(name, expr string) SchemaOption {
	return func(s *Schema) {
		s.checks = append(s.checks, CheckConstraint{Name: name, Expr: expr})
	}
}

// New builds an immutable schema from a table name and an ordered list of
// field descriptors. When no field declares a primary key, an integer "id"
// primary key is prepended. Every naming and option violation is reported
// here, at definition time.
func New(table string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	s := &Schema{table: table}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = camelCase(table)
	}

	pk := -1
	for i, f := range fields {
		if f.PrimaryKey {
			if pk >= 0 {
				return nil, fmt.Errorf("table %q: fields %q and %q both declare a primary key",
					table, fields[pk].Name, f.Name)
			}
			pk = i
		}
	}
	if pk < 0 {
		fields = append([]Field{Integer("id", PrimaryKey())}, fields...)
		pk = 0
	}

	s.fields = make([]Field, len(fields))
	copy(s.fields, fields)
	s.pk = pk
	s.byName = make(map[string]int, len(s.fields))

	columns := make(map[string]string, len(s.fields))
	for i := range s.fields {
		f := &s.fields[i]
		if f.Column == "" {
			f.Column = f.Name
		}
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("table %q: %w", table, err)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("table %q: duplicate field %q", table, f.Name)
		}
		if prev, dup := columns[f.Column]; dup {
			return nil, fmt.Errorf("table %q: fields %q and %q share column %q",
				table, prev, f.Name, f.Column)
		}
		s.byName[f.Name] = i
		columns[f.Column] = f.Name
	}

	for _, c := range s.checks {
		if err := validateIdentifier(c.Name); err != nil {
			return nil, fmt.Errorf("table %q: check constraint: %w", table, err)
		}
		if strings.TrimSpace(c.Expr) == "" {
			return nil, fmt.Errorf("table %q: check constraint %q has an empty expression", table, c.Name)
		}
	}

	return s, nil
}

// MustNew is New for package-level model definitions; it panics on error.
func MustNew(table string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := New(table, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// camelCase converts a snake_case table name to an UpperCamelCase model name.
func camelCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
