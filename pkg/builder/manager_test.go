package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marshallshelly/shale-orm/pkg/registry"
	"github.com/marshallshelly/shale-orm/pkg/runtime"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

func openDB(t *testing.T) *runtime.DB {
	t.Helper()
	db, err := runtime.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createGamesTable(t *testing.T, db *runtime.DB) {
	t.Helper()
	ddl := `CREATE TABLE games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(200) NOT NULL UNIQUE,
		genre TEXT,
		score INTEGER DEFAULT 0,
		is_published INTEGER DEFAULT 0,
		created_at INTEGER,
		metadata TEXT
	)`
	if err := db.Exec(context.Background(), ddl); err != nil {
		t.Fatalf("create table: %v", err)
	}
}

// newGameManager wires a fresh schema, store, and registry for one test.
// Objects registers the schema globally, so the registry is cleared on both
// sides to keep tests independent.
func newGameManager(t *testing.T) *Manager {
	t.Helper()
	db := openDB(t)
	createGamesTable(t, db)
	registry.Clear()
	t.Cleanup(registry.Clear)
	return Objects(gameSchema(t), db)
}

func seedGames(t *testing.T) *Manager {
	t.Helper()
	m := newGameManager(t)
	ctx := context.Background()
	rows := []map[string]any{
		{"title": "chess", "genre": "strategy", "score": 1200, "is_published": true, "metadata": map[string]any{"players": 2}},
		{"title": "go", "genre": "strategy", "score": 900, "is_published": true},
		{"title": "draughts", "genre": "strategy", "score": 400},
	}
	for _, r := range rows {
		if _, err := m.Create(ctx, r); err != nil {
			t.Fatalf("seed %v: %v", r["title"], err)
		}
	}
	return m
}

func TestCreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	m := newGameManager(t)

	inst, err := m.Create(ctx, map[string]any{"title": "tetris"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.PK() != 1 {
		t.Errorf("PK = %d, want 1", inst.PK())
	}
	if got := inst.GetInt("score"); got != 0 {
		t.Errorf("score default = %d, want 0", got)
	}
	if inst.GetBool("is_published") {
		t.Error("is_published default = true, want false")
	}
	if inst.GetTime("created_at").IsZero() {
		t.Error("created_at not stamped on create")
	}
	if v, ok := inst.Get("genre"); ok && v != nil {
		t.Errorf("genre = %v, want NULL", v)
	}
}

func TestCreateRejectsUnknownField(t *testing.T) {
	m := newGameManager(t)

	_, err := m.Create(context.Background(), map[string]any{"title": "x", "bogus": 1})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "bogus" {
		t.Errorf("Field = %q, want bogus", verr.Field)
	}
}

func TestCreateRequiresValue(t *testing.T) {
	m := newGameManager(t)

	_, err := m.Create(context.Background(), map[string]any{"genre": "puzzle"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "title" {
		t.Errorf("Field = %q, want title", verr.Field)
	}
}

func TestCreateReturnsStoreTruth(t *testing.T) {
	ctx := context.Background()
	m := newGameManager(t)

	at := time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)
	inst, err := m.Create(ctx, map[string]any{"title": "mahjong", "created_at": at})
	if err != nil {
		t.Fatal(err)
	}
	// The store keeps whole seconds, and the instance reflects that.
	want := at.Truncate(time.Second)
	if got := inst.GetTime("created_at"); !got.Equal(want) {
		t.Errorf("created_at = %v, want %v", got, want)
	}
}

func TestGetStrictFindTolerant(t *testing.T) {
	ctx := context.Background()
	m := seedGames(t)

	_, err := m.Get(ctx, Eq("title", "absent"))
	var dne *runtime.DoesNotExistError
	if !errors.As(err, &dne) {
		t.Fatalf("Get on missing row = %v, want DoesNotExistError", err)
	}
	if dne.Model != "Games" {
		t.Errorf("Model = %q", dne.Model)
	}

	inst, err := m.Find(ctx, Eq("title", "absent"))
	if err != nil || inst != nil {
		t.Errorf("Find on missing row = %v, %v, want nil, nil", inst, err)
	}

	// Several rows share the genre. Strict get refuses, tolerant find picks one.
	_, err = m.Get(ctx, Eq("genre", "strategy"))
	var amb *runtime.AmbiguousResultError
	if !errors.As(err, &amb) {
		t.Fatalf("Get on ambiguous lookup = %v, want AmbiguousResultError", err)
	}
	inst, err = m.Find(ctx, Eq("genre", "strategy"))
	if err != nil || inst == nil {
		t.Errorf("Find on ambiguous lookup = %v, %v, want a row", inst, err)
	}
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := newGameManager(t)

	inst, created, err := m.GetOrCreate(ctx,
		map[string]any{"title": "hive"},
		map[string]any{"title": "ignored", "score": 77})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Error("created = false on first call")
	}
	if inst.GetString("title") != "hive" {
		t.Errorf("lookup value lost: title = %q", inst.GetString("title"))
	}
	if inst.GetInt("score") != 77 {
		t.Errorf("default not applied: score = %d", inst.GetInt("score"))
	}

	again, created, err := m.GetOrCreate(ctx,
		map[string]any{"title": "hive"},
		map[string]any{"score": 999})
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if created {
		t.Error("created = true on second call")
	}
	if again.PK() != inst.PK() {
		t.Errorf("PK = %d, want %d", again.PK(), inst.PK())
	}
	if again.GetInt("score") != 77 {
		t.Errorf("existing row overwritten: score = %d", again.GetInt("score"))
	}

	n, err := m.Query().Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
}

func TestGetOrCreateRequiresLookup(t *testing.T) {
	m := newGameManager(t)
	_, _, err := m.GetOrCreate(context.Background(), nil, map[string]any{"title": "x"})
	if err == nil {
		t.Fatal("empty lookup accepted")
	}
}

func TestBulkCreate(t *testing.T) {
	ctx := context.Background()
	m := newGameManager(t)

	insts, err := m.BulkCreate(ctx, []map[string]any{
		{"title": "one"},
		{"title": "two", "score": 5},
		{"title": "three"},
	})
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	if len(insts) != 3 {
		t.Fatalf("got %d instances", len(insts))
	}
	for i, inst := range insts {
		if inst.PK() != int64(i+1) {
			t.Errorf("instance %d PK = %d, want %d", i, inst.PK(), i+1)
		}
	}
	if insts[1].GetInt("score") != 5 {
		t.Errorf("score = %d, want 5", insts[1].GetInt("score"))
	}
	if insts[0].GetInt("score") != 0 {
		t.Errorf("default not applied in bulk: score = %d", insts[0].GetInt("score"))
	}

	n, err := m.Query().Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("row count = %d, want 3", n)
	}
}

func TestBulkCreateRejectsExplicitID(t *testing.T) {
	m := newGameManager(t)

	_, err := m.BulkCreate(context.Background(), []map[string]any{
		{"title": "a"},
		{"id": 42, "title": "b"},
	})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "id" {
		t.Errorf("Field = %q, want id", verr.Field)
	}
}

func TestBulkCreateAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := newGameManager(t)

	if _, err := m.Create(ctx, map[string]any{"title": "chess"}); err != nil {
		t.Fatal(err)
	}

	_, err := m.BulkCreate(ctx, []map[string]any{
		{"title": "fresh"},
		{"title": "chess"},
	})
	var uv *runtime.UniqueViolationError
	if !errors.As(err, &uv) {
		t.Fatalf("err = %v, want UniqueViolationError", err)
	}

	n, err := m.Query().Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("row count = %d after failed bulk, want 1", n)
	}
}

func TestManagerInTransaction(t *testing.T) {
	ctx := context.Background()
	m := seedGames(t)
	db := m.store.(*runtime.DB)

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.WithStore(tx).Create(ctx, map[string]any{"title": "doomed"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	if inst, _ := m.Find(ctx, Eq("title", "doomed")); inst != nil {
		t.Error("rolled back row is visible")
	}

	tx, err = db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.WithStore(tx).Create(ctx, map[string]any{"title": "kept"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if inst, _ := m.Find(ctx, Eq("title", "kept")); inst == nil {
		t.Error("committed row is not visible")
	}
}

func TestObjectsRejectsConflictingSchema(t *testing.T) {
	registry.Clear()
	t.Cleanup(registry.Clear)

	Objects(gameSchema(t), nil)

	defer func() {
		if recover() == nil {
			t.Error("re-registering a different schema for the same table did not panic")
		}
	}()
	Objects(gameSchema(t), nil)
}
