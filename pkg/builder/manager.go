package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/marshallshelly/shale-orm/pkg/registry"
	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// Manager executes model operations against a bound store. Managers are
// cheap; WithStore derives one bound to a different store for running the
// same operations inside a transaction.
type Manager struct {
	sch   *schema.Schema
	store runtime.Store
}

// Objects binds a schema to a store and registers the schema's constraints
// in the process registry, so store errors classify back to logical fields.
// Registering a different schema under an already registered table panics:
// that is a wiring mistake at startup, not a runtime condition.
func Objects(sch *schema.Schema, store runtime.Store) *Manager {
	if err := registry.Register(sch); err != nil {
		panic(fmt.Sprintf("builder: %v", err))
	}
	return &Manager{sch: sch, store: store}
}

// WithStore returns a manager bound to a different store, typically a
// transaction.
func (m *Manager) WithStore(store runtime.Store) *Manager {
	return &Manager{sch: m.sch, store: store}
}

// Schema returns the bound model schema.
func (m *Manager) Schema() *schema.Schema { return m.sch }

// Query starts an empty chain over the model.
func (m *Manager) Query() *QuerySet {
	return NewQuerySet(m.sch, m.store)
}

// New returns an empty unsaved instance bound to the manager's store. Set
// fields and Save to insert it.
func (m *Manager) New() *Instance {
	return newInstance(m.sch, m.store)
}

// Create validates values, applies creation defaults, and inserts one row.
// The returned instance carries the store-assigned primary key and the
// values as the store holds them.
func (m *Manager) Create(ctx context.Context, values map[string]any) (*Instance, error) {
	if m.store == nil {
		return nil, runtime.ErrNoStore
	}
	if err := checkKnownFields(m.sch, values); err != nil {
		return nil, err
	}
	filled := applyDefaults(m.sch, values)

	fields := insertFields(m.sch, filled)
	args, err := rowArgs(fields, filled)
	if err != nil {
		return nil, err
	}

	sqlText := insertSQL(m.sch.Table(), columnNames(fields), 1)
	res, err := m.store.Prepare(sqlText).Bind(args...).Run(ctx)
	if err != nil {
		return nil, runtime.Classify(err, m.sch.Table())
	}

	inst := newInstance(m.sch, m.store)
	for i, f := range fields {
		v, err := f.CoerceFromStore(args[i])
		if err != nil {
			return nil, err
		}
		inst.values[f.Name] = v
	}
	pk := m.sch.PrimaryKey()
	if _, ok := inst.values[pk.Name]; !ok && res.LastInsertID != 0 {
		inst.values[pk.Name] = res.LastInsertID
	}
	return inst, nil
}

// Get reads exactly one row matching the filters. Absence is an error here;
// Find is the tolerant read.
func (m *Manager) Get(ctx context.Context, filters ...Filter) (*Instance, error) {
	return m.Query().Filter(filters...).Get(ctx)
}

// Find reads the first row matching the filters, or nil when nothing
// matches. Absence is never an error at this layer.
func (m *Manager) Find(ctx context.Context, filters ...Filter) (*Instance, error) {
	return m.Query().Filter(filters...).First(ctx)
}

// GetOrCreate inserts first and falls back to a read only when the insert
// hits a unique violation. The common create path costs one store round
// trip; the fallback costs two. defaults supply values for the insert that
// are not part of the lookup; lookup values win on overlap.
func (m *Manager) GetOrCreate(ctx context.Context, lookup, defaults map[string]any) (*Instance, bool, error) {
	if len(lookup) == 0 {
		return nil, false, errors.New("get-or-create requires at least one lookup field")
	}

	merged := make(map[string]any, len(lookup)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range lookup {
		merged[k] = v
	}

	inst, err := m.Create(ctx, merged)
	if err == nil {
		return inst, true, nil
	}
	var uv *runtime.UniqueViolationError
	if !errors.As(err, &uv) {
		return nil, false, err
	}

	// Filter in schema order so the fallback query is deterministic.
	filters := make([]Filter, 0, len(lookup))
	for _, f := range m.sch.Fields() {
		if v, ok := lookup[f.Name]; ok {
			filters = append(filters, Eq(f.Name, v))
		}
	}
	got, err := m.Get(ctx, filters...)
	if err != nil {
		return nil, false, err
	}
	return got, false, nil
}

// BulkCreate inserts all rows in one statement: one compile, one store round
// trip, all-or-nothing. Defaults and validation apply per row exactly as in
// Create. Explicit primary keys are rejected; the store assigns them, and a
// single multi-row insert assigns consecutive ones, so instance ids are
// reconstructed by counting back from the last reported id.
func (m *Manager) BulkCreate(ctx context.Context, rows []map[string]any) ([]*Instance, error) {
	if m.store == nil {
		return nil, runtime.ErrNoStore
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pk := m.sch.PrimaryKey()
	fields := nonKeyFields(m.sch)

	args := make([]any, 0, len(rows)*len(fields))
	for i, row := range rows {
		if err := checkKnownFields(m.sch, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if v, ok := row[pk.Name]; ok && v != nil {
			return nil, fmt.Errorf("row %d: %w", i, &schema.ValidationError{
				Field:  pk.Name,
				Reason: "bulk create assigns primary keys from the store",
			})
		}
		rargs, err := rowArgs(fields, applyDefaults(m.sch, row))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		args = append(args, rargs...)
	}

	sqlText := insertSQL(m.sch.Table(), columnNames(fields), len(rows))
	res, err := m.store.Prepare(sqlText).Bind(args...).Run(ctx)
	if err != nil {
		return nil, runtime.Classify(err, m.sch.Table())
	}

	out := make([]*Instance, len(rows))
	for i := range rows {
		inst := newInstance(m.sch, m.store)
		rargs := args[i*len(fields) : (i+1)*len(fields)]
		for j, f := range fields {
			v, err := f.CoerceFromStore(rargs[j])
			if err != nil {
				return nil, err
			}
			inst.values[f.Name] = v
		}
		if res.LastInsertID != 0 {
			inst.values[pk.Name] = res.LastInsertID - int64(len(rows)) + int64(i) + 1
		}
		out[i] = inst
	}
	return out, nil
}
