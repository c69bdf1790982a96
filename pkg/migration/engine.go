package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// trackingDDL creates the table recording which model schemas have been
// applied and the hash of the DDL they were applied from.
const trackingDDL = `CREATE TABLE IF NOT EXISTS shale_migrations (
    model TEXT PRIMARY KEY,
    table_name TEXT NOT NULL,
    hash TEXT NOT NULL,
    applied_at TEXT NOT NULL
);`

// Status classifies a model's migration standing.
type Status string

const (
	// StatusPending means the model has never been applied.
	StatusPending Status = "pending"
	// StatusApplied means the recorded hash matches the current DDL.
	StatusApplied Status = "applied"
	// StatusDrifted means the model was applied from DDL that differs from
	// what the schema generates now.
	StatusDrifted Status = "drifted"
)

// ModelStatus is one model's standing against the tracking table.
type ModelStatus struct {
	Model     string
	Table     string
	Status    Status
	AppliedAt time.Time
}

// Engine applies model schemas to a store and tracks what it applied.
type Engine struct {
	store runtime.Store
	opts  Options
	log   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger for per-model progress.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithOptions overrides the generation options for applied DDL.
func WithOptions(opts Options) EngineOption {
	return func(e *Engine) { e.opts = opts }
}

// NewEngine creates an engine over a store.
func NewEngine(store runtime.Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store, opts: DefaultOptions()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MigrateAll applies each model's DDL and reports per model: the returned
// map is keyed by model name with nil meaning success. A failure on one
// model never stops attempts on the others; callers get the whole picture
// in one pass.
func (e *Engine) MigrateAll(ctx context.Context, schemas []*schema.Schema) map[string]error {
	results := make(map[string]error, len(schemas))

	if err := e.ensureTracking(ctx); err != nil {
		for _, sch := range schemas {
			results[sch.Name()] = err
		}
		return results
	}

	for _, sch := range schemas {
		err := e.migrateOne(ctx, sch)
		results[sch.Name()] = err
		if e.log == nil {
			continue
		}
		if err != nil {
			e.log.Error("migration failed", "model", sch.Name(), "table", sch.Table(), "error", err)
		} else {
			e.log.Info("migration applied", "model", sch.Name(), "table", sch.Table())
		}
	}

	return results
}

// Status reports each model's standing: pending when never applied, applied
// when the recorded hash matches the current DDL, drifted when it does not.
func (e *Engine) Status(ctx context.Context, schemas []*schema.Schema) ([]ModelStatus, error) {
	if err := e.ensureTracking(ctx); err != nil {
		return nil, err
	}

	rows, err := e.store.Prepare("SELECT model, hash, applied_at FROM shale_migrations").All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read migration records: %w", err)
	}

	type record struct {
		hash      string
		appliedAt time.Time
	}
	applied := make(map[string]record, len(rows))
	for _, row := range rows {
		model, _ := row["model"].(string)
		hash, _ := row["hash"].(string)
		at, _ := row["applied_at"].(string)
		ts, _ := time.Parse(time.RFC3339, at)
		applied[model] = record{hash: hash, appliedAt: ts}
	}

	out := make([]ModelStatus, 0, len(schemas))
	for _, sch := range schemas {
		st := ModelStatus{Model: sch.Name(), Table: sch.Table(), Status: StatusPending}
		if rec, ok := applied[sch.Name()]; ok {
			st.AppliedAt = rec.appliedAt
			if rec.hash == tableHash(sch) {
				st.Status = StatusApplied
			} else {
				st.Status = StatusDrifted
			}
		}
		out = append(out, st)
	}
	return out, nil
}

func (e *Engine) ensureTracking(ctx context.Context) error {
	if err := e.store.Exec(ctx, trackingDDL); err != nil {
		return fmt.Errorf("create tracking table: %w", err)
	}
	return nil
}

func (e *Engine) migrateOne(ctx context.Context, sch *schema.Schema) error {
	if err := e.store.Exec(ctx, modelSQL(sch, e.opts)); err != nil {
		return fmt.Errorf("apply %s: %w", sch.Table(), err)
	}
	return e.record(ctx, sch)
}

// record upserts the model's tracking row. The hash is always computed over
// the canonical DDL form so it stays comparable to lockfile hashes.
func (e *Engine) record(ctx context.Context, sch *schema.Schema) error {
	sqlText := "INSERT INTO shale_migrations (model, table_name, hash, applied_at) VALUES (?, ?, ?, ?) " +
		"ON CONFLICT (model) DO UPDATE SET table_name = excluded.table_name, hash = excluded.hash, applied_at = excluded.applied_at"
	_, err := e.store.Prepare(sqlText).
		Bind(sch.Name(), sch.Table(), tableHash(sch), time.Now().UTC().Format(time.RFC3339)).
		Run(ctx)
	if err != nil {
		return fmt.Errorf("record %s: %w", sch.Name(), err)
	}
	return nil
}
