// Package registry provides a central, thread-safe registry of model schemas
// and the constraint descriptors derived from them. Constraint names are
// deterministic, so opaque store error text can be resolved back to the
// logical field that caused a violation.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// ConstraintKind classifies a registered constraint.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
)

// Constraint describes one physical constraint and the logical fields behind it.
type Constraint struct {
	Name      string
	Kind      ConstraintKind
	Table     string
	Fields    []string
	RefTable  string
	RefColumn string
}

// Registry is a thread-safe registry of schemas and their constraints. It is
// populated during model registration and read-only afterwards.
type Registry struct {
	mu          sync.RWMutex
	schemas     map[string]*schema.Schema
	order       []string
	constraints map[string]map[string]Constraint
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		schemas:     make(map[string]*schema.Schema),
		constraints: make(map[string]map[string]Constraint),
	}
}

// Register registers a schema and derives its constraint descriptors.
// Registering the same schema again is a no-op; a different schema claiming
// an already registered table is an error, as is any constraint name
// collision within the table.
func (r *Registry) Register(s *schema.Schema) error {
	if s == nil {
		return fmt.Errorf("cannot register nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := s.Table()
	if existing, ok := r.schemas[table]; ok {
		if existing == s {
			return nil
		}
		return fmt.Errorf("table %q is already registered to model %q", table, existing.Name())
	}

	derived, err := deriveConstraints(s)
	if err != nil {
		return err
	}

	r.schemas[table] = s
	r.order = append(r.order, table)
	r.constraints[table] = derived
	return nil
}

// Get retrieves a schema by table name.
func (r *Registry) Get(table string) (*schema.Schema, error) {
	r.mu.RLock()
	s, ok := r.schemas[table]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", table)
	}
	return s, nil
}

// Has checks if a table name is registered.
func (r *Registry) Has(table string) bool {
	r.mu.RLock()
	_, ok := r.schemas[table]
	r.mu.RUnlock()
	return ok
}

// All returns all registered schemas in registration order.
func (r *Registry) All() []*schema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*schema.Schema, len(r.order))
	for i, table := range r.order {
		out[i] = r.schemas[table]
	}
	return out
}

// AllNames returns all registered table names in registration order.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// GetConstraint looks up a constraint by table and physical name.
func (r *Registry) GetConstraint(table, name string) (Constraint, bool) {
	r.mu.RLock()
	c, ok := r.constraints[table][name]
	r.mu.RUnlock()
	return c, ok
}

// FindConstraintByFields finds a constraint of the given kind covering
// exactly the given field set, regardless of order.
func (r *Registry) FindConstraintByFields(table string, kind ConstraintKind, fields ...string) (Constraint, bool) {
	want := append([]string(nil), fields...)
	sort.Strings(want)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.constraints[table] {
		if c.Kind != kind || len(c.Fields) != len(want) {
			continue
		}
		have := append([]string(nil), c.Fields...)
		sort.Strings(have)
		match := true
		for i := range have {
			if have[i] != want[i] {
				match = false
				break
			}
		}
		if match {
			return c, true
		}
	}
	return Constraint{}, false
}

// TableConstraints returns a table's constraints sorted by name.
func (r *Registry) TableConstraints(table string) []Constraint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Constraint, 0, len(r.constraints[table]))
	for _, c := range r.constraints[table] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear removes all registered schemas.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas = make(map[string]*schema.Schema)
	r.order = nil
	r.constraints = make(map[string]map[string]Constraint)
}

// deriveConstraints builds the deterministic descriptor set for a schema:
// uq_<table>_<column> for unique fields and the primary key,
// nn_<table>_<column> for not-null fields, fk_<table>_<column> for foreign
// keys, and the declared names for table-level checks.
func deriveConstraints(s *schema.Schema) (map[string]Constraint, error) {
	table := s.Table()
	out := make(map[string]Constraint)

	add := func(c Constraint) error {
		if _, dup := out[c.Name]; dup {
			return fmt.Errorf("table %q: constraint name collision on %q", table, c.Name)
		}
		out[c.Name] = c
		return nil
	}

	for _, f := range s.Fields() {
		if f.Unique || f.PrimaryKey {
			err := add(Constraint{
				Name:   fmt.Sprintf("uq_%s_%s", table, f.Column),
				Kind:   ConstraintUnique,
				Table:  table,
				Fields: []string{f.Name},
			})
			if err != nil {
				return nil, err
			}
		}
		if f.NotNull && !f.PrimaryKey {
			err := add(Constraint{
				Name:   fmt.Sprintf("nn_%s_%s", table, f.Column),
				Kind:   ConstraintNotNull,
				Table:  table,
				Fields: []string{f.Name},
			})
			if err != nil {
				return nil, err
			}
		}
		if f.RefTable != "" {
			err := add(Constraint{
				Name:      fmt.Sprintf("fk_%s_%s", table, f.Column),
				Kind:      ConstraintForeignKey,
				Table:     table,
				Fields:    []string{f.Name},
				RefTable:  f.RefTable,
				RefColumn: f.RefColumn,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	for _, c := range s.Checks() {
		err := add(Constraint{
			Name:  c.Name,
			Kind:  ConstraintCheck,
			Table: table,
		})
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// globalRegistry is the default global registry instance.
var globalRegistry = NewRegistry()

// Global returns the global registry instance.
func Global() *Registry { return globalRegistry }

// Register registers a schema in the global registry.
func Register(s *schema.Schema) error {
	return globalRegistry.Register(s)
}

// Get retrieves a schema by table name from the global registry.
func Get(table string) (*schema.Schema, error) {
	return globalRegistry.Get(table)
}

// Has checks if a table is registered in the global registry.
func Has(table string) bool {
	return globalRegistry.Has(table)
}

// All returns all schemas from the global registry.
func All() []*schema.Schema {
	return globalRegistry.All()
}

// AllNames returns all table names from the global registry.
func AllNames() []string {
	return globalRegistry.AllNames()
}

// GetConstraint looks up a constraint in the global registry.
func GetConstraint(table, name string) (Constraint, bool) {
	return globalRegistry.GetConstraint(table, name)
}

// FindConstraintByFields finds a constraint in the global registry by field set.
func FindConstraintByFields(table string, kind ConstraintKind, fields ...string) (Constraint, bool) {
	return globalRegistry.FindConstraintByFields(table, kind, fields...)
}

// TableConstraints returns a table's constraints from the global registry.
func TableConstraints(table string) []Constraint {
	return globalRegistry.TableConstraints(table)
}

// Clear clears the global registry.
func Clear() {
	globalRegistry.Clear()
}
