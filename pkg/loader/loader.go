// Package loader reads model manifests: YAML documents declaring tables and
// fields, for tooling that cannot import the application's Go code. Embedded
// callers define schemas in code instead and skip this package entirely.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Manifest is the root of a model manifest document.
type Manifest struct {
	Models []ModelSpec `yaml:"models"`
}

// ModelSpec declares one model: its table, an optional logical name, and its
// fields in order.
type ModelSpec struct {
	Table  string      `yaml:"table"`
	Name   string      `yaml:"name"`
	Fields []FieldSpec `yaml:"fields"`
	Checks []CheckSpec `yaml:"checks"`
}

// FieldSpec declares one field. References name the target as "table.column";
// a bare table name references its "id".
type FieldSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Column     string `yaml:"column"`
	PrimaryKey bool   `yaml:"primary_key"`
	NotNull    bool   `yaml:"not_null"`
	Unique     bool   `yaml:"unique"`
	MaxLength  int    `yaml:"max_length"`
	Default    any    `yaml:"default"`
	AutoNowAdd bool   `yaml:"auto_now_add"`
	References string `yaml:"references"`
}

// CheckSpec declares a named table-level CHECK expression.
type CheckSpec struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// LoadManifest reads and validates a manifest file, returning the declared
// schemas in document order. Unknown YAML keys are errors, so a typo in an
// option name fails the load instead of being silently dropped.
func LoadManifest(path string) ([]*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest validates manifest bytes and builds the declared schemas.
func ParseManifest(data []byte) ([]*schema.Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Models) == 0 {
		return nil, fmt.Errorf("manifest declares no models")
	}

	schemas := make([]*schema.Schema, 0, len(m.Models))
	seen := make(map[string]struct{}, len(m.Models))
	for i, spec := range m.Models {
		s, err := buildSchema(spec)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i+1, err)
		}
		if _, dup := seen[s.Table()]; dup {
			return nil, fmt.Errorf("model %d: table %q declared twice", i+1, s.Table())
		}
		seen[s.Table()] = struct{}{}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

func buildSchema(spec ModelSpec) (*schema.Schema, error) {
	if spec.Table == "" {
		return nil, fmt.Errorf("missing table name")
	}
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("table %q declares no fields", spec.Table)
	}

	fields := make([]schema.Field, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		f, err := buildField(fs)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", spec.Table, err)
		}
		fields = append(fields, f)
	}

	opts := make([]schema.SchemaOption, 0, len(spec.Checks)+1)
	if spec.Name != "" {
		opts = append(opts, schema.WithName(spec.Name))
	}
	for _, c := range spec.Checks {
		opts = append(opts, schema.Check(c.Name, c.Expr))
	}

	return schema.New(spec.Table, fields, opts...)
}

func buildField(fs FieldSpec) (schema.Field, error) {
	if fs.Name == "" {
		return schema.Field{}, fmt.Errorf("field with no name")
	}
	kind, err := schema.ParseKind(fs.Type)
	if err != nil {
		return schema.Field{}, fmt.Errorf("field %q: %w", fs.Name, err)
	}

	var opts []schema.Option
	if fs.Column != "" {
		opts = append(opts, schema.Column(fs.Column))
	}
	if fs.PrimaryKey {
		opts = append(opts, schema.PrimaryKey())
	}
	if fs.NotNull {
		opts = append(opts, schema.NotNull())
	}
	if fs.Unique {
		opts = append(opts, schema.Unique())
	}
	if fs.MaxLength != 0 {
		opts = append(opts, schema.MaxLength(fs.MaxLength))
	}
	if fs.Default != nil {
		opts = append(opts, schema.Default(fs.Default))
	}
	if fs.AutoNowAdd {
		opts = append(opts, schema.AutoNowAdd())
	}
	if fs.References != "" {
		table, column, ok := strings.Cut(fs.References, ".")
		if !ok {
			column = "id"
		}
		opts = append(opts, schema.References(table, column))
	}

	switch kind {
	case schema.KindString:
		return schema.String(fs.Name, opts...), nil
	case schema.KindInteger:
		return schema.Integer(fs.Name, opts...), nil
	case schema.KindBoolean:
		return schema.Boolean(fs.Name, opts...), nil
	case schema.KindTimestamp:
		return schema.Timestamp(fs.Name, opts...), nil
	case schema.KindJSON:
		return schema.JSON(fs.Name, opts...), nil
	default:
		return schema.Field{}, fmt.Errorf("field %q: unhandled kind %s", fs.Name, kind)
	}
}
