package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marshallshelly/shale-orm/pkg/registry"
	"github.com/marshallshelly/shale-orm/pkg/schema"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := openTestDB(t)
	if db.Path() != ":memory:" {
		t.Errorf("Path = %q", db.Path())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestExecAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Exec(ctx, `CREATE TABLE games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(80) NOT NULL,
		score INTEGER
	)`)
	if err != nil {
		t.Fatalf("Exec DDL: %v", err)
	}

	res, err := db.Prepare("INSERT INTO games (title, score) VALUES (?, ?)").
		Bind("chess", 1200).
		Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("RowsAffected = %d, want 1", res.RowsAffected)
	}
	if res.LastInsertID != 1 {
		t.Errorf("LastInsertID = %d, want 1", res.LastInsertID)
	}

	row, err := db.Prepare("SELECT id, title, score FROM games WHERE id = ?").
		Bind(res.LastInsertID).
		First(ctx)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if row == nil {
		t.Fatal("First returned nil for existing row")
	}
	if row["title"] != "chess" {
		t.Errorf("title = %v (%T), want string chess", row["title"], row["title"])
	}
	if row["score"] != int64(1200) {
		t.Errorf("score = %v (%T), want int64 1200", row["score"], row["score"])
	}
}

func TestFirstReturnsNilWhenEmpty(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE empty_t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}

	row, err := db.Prepare("SELECT id FROM empty_t WHERE id = ?").Bind(42).First(ctx)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if row != nil {
		t.Errorf("First = %v, want nil", row)
	}
}

func TestAllPreservesOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE nums (n INTEGER)"); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{3, 1, 2} {
		if _, err := db.Prepare("INSERT INTO nums (n) VALUES (?)").Bind(n).Run(ctx); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.Prepare("SELECT n FROM nums ORDER BY n").All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	for i, want := range []int64{1, 2, 3} {
		if rows[i]["n"] != want {
			t.Errorf("rows[%d] = %v, want %d", i, rows[i]["n"], want)
		}
	}
}

func TestBindDerivesStatement(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE kv (k VARCHAR(10), v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	base := db.Prepare("INSERT INTO kv (k, v) VALUES (?, ?)")
	if _, err := base.Bind("a", 1).Run(ctx); err != nil {
		t.Fatal(err)
	}
	// Rebinding the same base statement must not see the earlier args.
	if _, err := base.Bind("b", 2).Run(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := db.Prepare("SELECT k, v FROM kv ORDER BY k").All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["k"] != "a" || rows[1]["k"] != "b" {
		t.Errorf("rows = %v", rows)
	}
}

func TestQueryErrorCarriesSQL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Prepare("SELECT broken FROM nowhere").All(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("error is %T, want *QueryError", err)
	}
	if !strings.Contains(qe.Query, "nowhere") {
		t.Errorf("Query = %q, want original SQL", qe.Query)
	}
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE t (n INTEGER)"); err != nil {
		t.Fatal(err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tx.Prepare("INSERT INTO t (n) VALUES (?)").Bind(1).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	row, err := db.Prepare("SELECT COUNT(*) AS c FROM t").First(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if row["c"] != int64(1) {
		t.Errorf("count = %v, want 1", row["c"])
	}
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE t (n INTEGER)"); err != nil {
		t.Fatal(err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Prepare("INSERT INTO t (n) VALUES (?)").Bind(1).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	row, err := db.Prepare("SELECT COUNT(*) AS c FROM t").First(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if row["c"] != int64(0) {
		t.Errorf("count = %v, want 0 after rollback", row["c"])
	}
}

func TestSavepointPartialRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Exec(ctx, "CREATE TABLE t (n INTEGER)"); err != nil {
		t.Fatal(err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Prepare("INSERT INTO t (n) VALUES (?)").Bind(1).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Savepoint("sp1"); err != nil {
		t.Fatalf("Savepoint: %v", err)
	}
	if _, err := tx.Prepare("INSERT INTO t (n) VALUES (?)").Bind(2).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.RollbackToSavepoint("sp1"); err != nil {
		t.Fatalf("RollbackToSavepoint: %v", err)
	}
	if err := tx.ReleaseSavepoint("sp1"); err != nil {
		t.Fatalf("ReleaseSavepoint: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rows, err := db.Prepare("SELECT n FROM t").All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["n"] != int64(1) {
		t.Errorf("rows = %v, want only the pre-savepoint insert", rows)
	}
}

func TestSavepointNameValidation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	for _, name := range []string{"", "1sp", "sp; DROP TABLE t", "sp name"} {
		if err := tx.Savepoint(name); err == nil {
			t.Errorf("Savepoint(%q) accepted invalid name", name)
		}
	}
}

func TestClosedTransactionRejectsWork(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	if err := tx.Exec(ctx, "CREATE TABLE t (n INTEGER)"); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Exec after commit = %v, want ErrTransactionClosed", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("double Commit = %v, want ErrTransactionClosed", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Rollback after commit = %v, want ErrTransactionClosed", err)
	}
}

// A real driver-level unique violation should classify with the field and
// constraint resolved through the registry.
func TestUniqueViolationClassifiedEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	registry.Clear()
	t.Cleanup(registry.Clear)
	s, err := schema.New("players", []schema.Field{
		schema.String("email", schema.MaxLength(120), schema.NotNull(), schema.Unique()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(s); err != nil {
		t.Fatal(err)
	}

	err = db.Exec(ctx, `CREATE TABLE players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email VARCHAR(120) NOT NULL UNIQUE
	)`)
	if err != nil {
		t.Fatal(err)
	}

	insert := db.Prepare("INSERT INTO players (email) VALUES (?)")
	if _, err := insert.Bind("kasparov@example.com").Run(ctx); err != nil {
		t.Fatal(err)
	}
	_, rawErr := insert.Bind("kasparov@example.com").Run(ctx)
	if rawErr == nil {
		t.Fatal("expected unique violation")
	}

	classified := Classify(rawErr, "players")
	var uv *UniqueViolationError
	if !errors.As(classified, &uv) {
		t.Fatalf("classified as %T, want *UniqueViolationError", classified)
	}
	if uv.Table != "players" || uv.Field != "email" {
		t.Errorf("got table=%q field=%q", uv.Table, uv.Field)
	}
	if uv.Constraint != "uq_players_email" {
		t.Errorf("Constraint = %q", uv.Constraint)
	}
}

// NOT NULL violations raised by the store classify the same way as the
// coercion layer reports them before a write.
func TestNotNullViolationClassifiedEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Exec(ctx, `CREATE TABLE towns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(40) NOT NULL
	)`)
	if err != nil {
		t.Fatal(err)
	}

	_, rawErr := db.Prepare("INSERT INTO towns (name) VALUES (?)").Bind(nil).Run(ctx)
	if rawErr == nil {
		t.Fatal("expected not-null violation")
	}

	classified := Classify(rawErr, "towns")
	var nn *NotNullViolationError
	if !errors.As(classified, &nn) {
		t.Fatalf("classified as %T, want *NotNullViolationError", classified)
	}
	if nn.Table != "towns" || nn.Field != "name" {
		t.Errorf("got table=%q field=%q", nn.Table, nn.Field)
	}
}
