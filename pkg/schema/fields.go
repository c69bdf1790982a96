package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// ValidationError reports a field value that failed validation. It is always
// raised before any store round trip.
type ValidationError struct {
	Field  string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Reason)
}

func validationErr(field, reason string, value any) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

// Option configures a field descriptor.
type Option func(*Field)

// PrimaryKey marks an integer field as the auto-incrementing primary key.
func PrimaryKey() Option {
	return func(f *Field) { f.PrimaryKey = true }
}

// NotNull rejects nil values before they reach the store.
func NotNull() Option {
	return func(f *Field) { f.NotNull = true }
}

// Unique declares a single-column unique constraint.
func Unique() Option {
	return func(f *Field) { f.Unique = true }
}

// MaxLength caps a string field's length in characters.
func MaxLength(n int) Option {
	return func(f *Field) { f.MaxLength = n }
}

// Default sets a static default applied when a row is created without a
// value for the field. Static defaults also appear in generated DDL.
func Default(v any) Option {
	return func(f *Field) {
		f.HasDefault = true
		f.Default = v
	}
}

// DefaultFunc sets a generated default, evaluated per created row. Generated
// defaults never appear in DDL.
func DefaultFunc(fn func() any) Option {
	return func(f *Field) { f.DefaultFunc = fn }
}

// AutoNowAdd stamps a timestamp field with the creation time when no value
// was provided.
func AutoNowAdd() Option {
	return func(f *Field) { f.AutoNowAdd = true }
}

// References declares a foreign key from an integer field to another table's
// column.
func References(table, column string) Option {
	return func(f *Field) {
		f.RefTable = table
		f.RefColumn = column
	}
}

// Column overrides the column name. The logical field name is still used for
// lookups and error messages.
func Column(name string) Option {
	return func(f *Field) { f.Column = name }
}

func newField(name string, kind Kind, opts ...Option) Field {
	f := Field{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	if f.Column == "" {
		f.Column = f.Name
	}
	return f
}

// String declares a text field.
func String(name string, opts ...Option) Field {
	return newField(name, KindString, opts...)
}

// Integer declares a 64-bit integer field.
func Integer(name string, opts ...Option) Field {
	return newField(name, KindInteger, opts...)
}

// Boolean declares a boolean field, stored as 0 or 1.
func Boolean(name string, opts ...Option) Field {
	return newField(name, KindBoolean, opts...)
}

// Timestamp declares a timestamp field, stored as epoch seconds.
func Timestamp(name string, opts ...Option) Field {
	return newField(name, KindTimestamp, opts...)
}

// JSON declares a document field, stored as serialized JSON text.
func JSON(name string, opts ...Option) Field {
	return newField(name, KindJSON, opts...)
}

// validate checks the descriptor's internal consistency. Called once during
// schema construction so misdeclared fields fail at definition time.
func (f *Field) validate() error {
	if err := validateIdentifier(f.Name); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	if f.Column != f.Name {
		if err := validateIdentifier(f.Column); err != nil {
			return fmt.Errorf("field %q column: %w", f.Name, err)
		}
	}
	if f.PrimaryKey && f.Kind != KindInteger {
		return fmt.Errorf("field %q: primary key must be an integer field", f.Name)
	}
	if f.MaxLength < 0 {
		return fmt.Errorf("field %q: max length cannot be negative", f.Name)
	}
	if f.MaxLength > 0 && f.Kind != KindString {
		return fmt.Errorf("field %q: max length applies only to string fields", f.Name)
	}
	if f.AutoNowAdd && f.Kind != KindTimestamp {
		return fmt.Errorf("field %q: auto-now-add applies only to timestamp fields", f.Name)
	}
	if f.RefTable != "" {
		if f.Kind != KindInteger {
			return fmt.Errorf("field %q: foreign keys must be integer fields", f.Name)
		}
		if err := validateIdentifier(f.RefTable); err != nil {
			return fmt.Errorf("field %q references: %w", f.Name, err)
		}
		if err := validateIdentifier(f.RefColumn); err != nil {
			return fmt.Errorf("field %q references: %w", f.Name, err)
		}
	}
	if f.HasDefault {
		if _, err := f.CoerceToStore(f.Default); err != nil {
			return fmt.Errorf("field %q: default value: %w", f.Name, err)
		}
	}
	return nil
}

// CoerceToStore validates an application value and converts it to the
// store's representation for this kind. It never performs I/O.
func (f *Field) CoerceToStore(v any) (any, error) {
	if v == nil {
		if f.NotNull && !f.PrimaryKey {
			return nil, validationErr(f.Name, "value is required", nil)
		}
		return nil, nil
	}

	switch f.Kind {
	case KindString:
		s, ok := stringValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("expected string, got %T", v), v)
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return nil, validationErr(f.Name, fmt.Sprintf("exceeds max length %d", f.MaxLength), v)
		}
		return s, nil

	case KindInteger:
		n, ok := intValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("expected integer, got %T", v), v)
		}
		return n, nil

	case KindBoolean:
		switch b := v.(type) {
		case bool:
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		default:
			if n, ok := intValue(v); ok && (n == 0 || n == 1) {
				return n, nil
			}
			return nil, validationErr(f.Name, fmt.Sprintf("expected boolean, got %T", v), v)
		}

	case KindTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.Unix(), nil
		default:
			if n, ok := intValue(v); ok {
				return n, nil
			}
			return nil, validationErr(f.Name, fmt.Sprintf("expected timestamp, got %T", v), v)
		}

	case KindJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, validationErr(f.Name, "value is not JSON-encodable", v)
		}
		return string(data), nil

	default:
		return nil, validationErr(f.Name, fmt.Sprintf("unsupported kind %v", f.Kind), v)
	}
}

// CoerceFromStore converts a raw store value back to the application
// representation for this kind.
func (f *Field) CoerceFromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Kind {
	case KindString:
		s, ok := stringValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("store returned %T for string field", v), v)
		}
		return s, nil

	case KindInteger:
		n, ok := intValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("store returned %T for integer field", v), v)
		}
		return n, nil

	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		default:
			n, ok := intValue(v)
			if !ok {
				return nil, validationErr(f.Name, fmt.Sprintf("store returned %T for boolean field", v), v)
			}
			return n != 0, nil
		}

	case KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
		n, ok := intValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("store returned %T for timestamp field", v), v)
		}
		return time.Unix(n, 0).UTC(), nil

	case KindJSON:
		s, ok := stringValue(v)
		if !ok {
			return nil, validationErr(f.Name, fmt.Sprintf("store returned %T for json field", v), v)
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, validationErr(f.Name, "malformed JSON in store", s)
		}
		return out, nil

	default:
		return nil, validationErr(f.Name, fmt.Sprintf("unsupported kind %v", f.Kind), v)
	}
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// intValue widens the integer shapes a store or caller can hand us into
// int64. Floats are accepted only when they carry an integral value, since
// JSON-decoded rows arrive as float64.
func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case float32:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
