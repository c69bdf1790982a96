// Package schema defines the field catalog and model metadata: typed field
// descriptors with their storage encodings, and the ordered schema objects
// that every generated statement derives its column lists from.
package schema

import "fmt"

// Kind identifies the storage class of a field.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
	KindTimestamp
	KindJSON
)

// String returns the manifest name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a manifest type name to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "timestamp":
		return KindTimestamp, nil
	case "json":
		return KindJSON, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

// StoreType returns the column type the kind occupies in the store.
// Strings honor a max length when one is set.
func (k Kind) StoreType(maxLength int) string {
	switch k {
	case KindString:
		if maxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", maxLength)
		}
		return "TEXT"
	case KindInteger, KindBoolean, KindTimestamp:
		return "INTEGER"
	case KindJSON:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Field describes one column of a model: its kind, its constraints, and the
// defaults applied when a row is created without a value for it.
type Field struct {
	Name        string
	Column      string
	Kind        Kind
	PrimaryKey  bool
	NotNull     bool
	Unique      bool
	MaxLength   int
	HasDefault  bool
	Default     any
	DefaultFunc func() any
	AutoNowAdd  bool
	RefTable    string
	RefColumn   string
}

// CheckConstraint is a named table-level CHECK expression.
type CheckConstraint struct {
	Name string
	Expr string
}

// Schema is the immutable metadata for one model: its table name, its fields
// in declaration order, and its table-level constraints. Declaration order is
// the canonical column order for every statement generated from the schema.
type Schema struct {
	name   string
	table  string
	fields []Field
	byName map[string]int
	pk     int
	checks []CheckConstraint
}

// Name returns the logical model name used in error messages and reports.
func (s *Schema) Name() string { return s.name }

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Fields returns the fields in declaration order. Callers must not modify
// the returned slice.
func (s *Schema) Fields() []Field { return s.fields }

// Field looks up a field by its logical name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldIndex returns the declaration position of a field, or -1.
func (s *Schema) FieldIndex(name string) int {
	i, ok := s.byName[name]
	if !ok {
		return -1
	}
	return i
}

// PrimaryKey returns the primary key field.
func (s *Schema) PrimaryKey() Field { return s.fields[s.pk] }

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.Column
	}
	return cols
}

// FieldNames returns the logical field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Checks returns the table-level CHECK constraints in declaration order.
func (s *Schema) Checks() []CheckConstraint { return s.checks }
