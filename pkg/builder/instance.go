package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Instance is one row bound to its schema: field values keyed by logical
// name, with typed accessors. Values hold the application representation
// (time.Time, bool, decoded JSON), not the store encoding.
type Instance struct {
	sch    *schema.Schema
	store  runtime.Store
	values map[string]any
	dirty  map[string]struct{}
}

func newInstance(sch *schema.Schema, store runtime.Store) *Instance {
	return &Instance{
		sch:    sch,
		store:  store,
		values: make(map[string]any, len(sch.Fields())),
		dirty:  make(map[string]struct{}),
	}
}

// newInstanceFromRow decodes a store row through the field catalog. Columns
// the schema does not know are ignored; fields the row does not carry stay
// unset.
func newInstanceFromRow(sch *schema.Schema, store runtime.Store, row runtime.Row) (*Instance, error) {
	inst := newInstance(sch, store)
	for _, f := range sch.Fields() {
		raw, ok := row[f.Column]
		if !ok {
			continue
		}
		v, err := f.CoerceFromStore(raw)
		if err != nil {
			return nil, err
		}
		inst.values[f.Name] = v
	}
	return inst, nil
}

// Schema returns the instance's model schema.
func (in *Instance) Schema() *schema.Schema { return in.sch }

// Get returns the field's value and whether it is set. A NULL column is set
// with a nil value; a field outside the read projection is not set.
func (in *Instance) Get(name string) (any, bool) {
	v, ok := in.values[name]
	return v, ok
}

// GetString returns the field as a string, or "" when unset.
func (in *Instance) GetString(name string) string {
	s, _ := in.values[name].(string)
	return s
}

// GetInt returns the field as an int64, or 0 when unset.
func (in *Instance) GetInt(name string) int64 {
	n, _ := in.values[name].(int64)
	return n
}

// GetBool returns the field as a bool, or false when unset.
func (in *Instance) GetBool(name string) bool {
	b, _ := in.values[name].(bool)
	return b
}

// GetTime returns the field as a time.Time, or the zero time when unset.
func (in *Instance) GetTime(name string) time.Time {
	t, _ := in.values[name].(time.Time)
	return t
}

// GetJSON decodes the field's document into dest, which must be a pointer.
func (in *Instance) GetJSON(name string, dest any) error {
	v, ok := in.values[name]
	if !ok {
		return fmt.Errorf("field %q is not set", name)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set validates the field name and value, records the new value, and marks
// the field dirty for the next Save. Validation happens here so a bad value
// fails at the assignment, not at the write.
func (in *Instance) Set(name string, value any) error {
	f, ok := in.sch.Field(name)
	if !ok {
		return &schema.ValidationError{Field: name, Reason: "unknown field"}
	}
	if _, err := f.CoerceToStore(value); err != nil {
		return err
	}
	in.values[name] = value
	in.dirty[name] = struct{}{}
	return nil
}

// PK returns the primary key value, or 0 when the row has not been inserted.
func (in *Instance) PK() int64 {
	n, _ := in.values[in.sch.PrimaryKey().Name].(int64)
	return n
}

// ToMap copies the set fields, keyed by logical field name. Iterate the
// schema's Fields for a deterministic order.
func (in *Instance) ToMap() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}

// Save writes the instance: an UPDATE of the dirty fields when the primary
// key is set, an INSERT applying creation defaults when it is not. A saved
// instance is clean until the next Set.
func (in *Instance) Save(ctx context.Context) error {
	if in.store == nil {
		return runtime.ErrNoStore
	}

	pk := in.sch.PrimaryKey()
	if in.PK() == 0 {
		m := &Manager{sch: in.sch, store: in.store}
		created, err := m.Create(ctx, in.ToMap())
		if err != nil {
			return err
		}
		in.values = created.values
		in.dirty = make(map[string]struct{})
		return nil
	}

	if len(in.dirty) == 0 {
		return nil
	}
	changes := make(map[string]any, len(in.dirty))
	for name := range in.dirty {
		changes[name] = in.values[name]
	}
	_, err := NewQuerySet(in.sch, in.store).
		Filter(Eq(pk.Name, in.PK())).
		Update(ctx, changes)
	if err != nil {
		return err
	}
	in.dirty = make(map[string]struct{})
	return nil
}

// Delete removes the row by primary key.
func (in *Instance) Delete(ctx context.Context) error {
	if in.store == nil {
		return runtime.ErrNoStore
	}
	if in.PK() == 0 {
		return fmt.Errorf("cannot delete %s without a primary key", in.sch.Name())
	}
	_, err := NewQuerySet(in.sch, in.store).
		Filter(Eq(in.sch.PrimaryKey().Name, in.PK())).
		Delete(ctx)
	return err
}
