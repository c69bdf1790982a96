package schema

import (
	"strings"
	"testing"
)

func TestNewPrependsImplicitID(t *testing.T) {
	s, err := New("games", []Field{
		String("title", MaxLength(200), NotNull()),
		Integer("score", Default(0)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fields := s.Fields()
	if fields[0].Name != "id" || !fields[0].PrimaryKey || fields[0].Kind != KindInteger {
		t.Errorf("first field = %+v, want implicit integer id primary key", fields[0])
	}
	if got := s.PrimaryKey().Name; got != "id" {
		t.Errorf("PrimaryKey().Name = %q, want id", got)
	}

	want := []string{"id", "title", "score"}
	got := s.ColumnNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
}

func TestNewKeepsDeclaredPrimaryKey(t *testing.T) {
	s, err := New("games", []Field{
		Integer("game_id", PrimaryKey()),
		String("title"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.PrimaryKey().Name; got != "game_id" {
		t.Errorf("PrimaryKey().Name = %q, want game_id", got)
	}
	if len(s.Fields()) != 2 {
		t.Errorf("field count = %d, want 2", len(s.Fields()))
	}
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		fields []Field
		errHas string
	}{
		{
			name:   "two primary keys",
			table:  "games",
			fields: []Field{Integer("a", PrimaryKey()), Integer("b", PrimaryKey())},
			errHas: "both declare a primary key",
		},
		{
			name:   "reserved table name",
			table:  "select",
			fields: []Field{String("title")},
			errHas: "reserved word",
		},
		{
			name:   "reserved column name",
			table:  "games",
			fields: []Field{String("order")},
			errHas: "reserved word",
		},
		{
			name:   "table with spaces",
			table:  "my games",
			fields: []Field{String("title")},
			errHas: "invalid character",
		},
		{
			name:   "table starting with digit",
			table:  "1games",
			fields: []Field{String("title")},
			errHas: "cannot start with a digit",
		},
		{
			name:   "semicolon injection in column",
			table:  "games",
			fields: []Field{String("title; DROP TABLE games")},
			errHas: "invalid character",
		},
		{
			name:   "duplicate field names",
			table:  "games",
			fields: []Field{String("title"), String("title")},
			errHas: "duplicate field",
		},
		{
			name:   "column collision",
			table:  "games",
			fields: []Field{String("title"), String("name", Column("title"))},
			errHas: "share column",
		},
		{
			name:   "string primary key",
			table:  "games",
			fields: []Field{String("slug", PrimaryKey())},
			errHas: "primary key must be an integer",
		},
		{
			name:   "max length on integer",
			table:  "games",
			fields: []Field{Integer("score", MaxLength(10))},
			errHas: "max length applies only to string",
		},
		{
			name:   "auto now add on string",
			table:  "games",
			fields: []Field{String("title", AutoNowAdd())},
			errHas: "auto-now-add applies only to timestamp",
		},
		{
			name:   "foreign key on string",
			table:  "posts",
			fields: []Field{String("author", References("users", "id"))},
			errHas: "foreign keys must be integer",
		},
		{
			name:   "default fails field validation",
			table:  "games",
			fields: []Field{Integer("score", Default("high"))},
			errHas: "default value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.table, tt.fields)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errHas) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.errHas)
			}
		})
	}
}

func TestModelNameDefaultsToCamelCase(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{table: "games", want: "Games"},
		{table: "test_games", want: "TestGames"},
		{table: "user_login_events", want: "UserLoginEvents"},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			s, err := New(tt.table, []Field{String("title")})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if s.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.want)
			}
		})
	}
}

func TestWithNameOverride(t *testing.T) {
	s, err := New("games", []Field{String("title")}, WithName("Game"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Name() != "Game" {
		t.Errorf("Name() = %q, want Game", s.Name())
	}
}

func TestCheckConstraints(t *testing.T) {
	s, err := New("users", []Field{
		Integer("age"),
	}, Check("ck_users_age", "age >= 0"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	checks := s.Checks()
	if len(checks) != 1 || checks[0].Name != "ck_users_age" || checks[0].Expr != "age >= 0" {
		t.Errorf("Checks() = %+v", checks)
	}

	if _, err := New("users", []Field{Integer("age")}, Check("ck_users_age", "  ")); err == nil {
		t.Error("empty check expression accepted")
	}
}

func TestFieldLookup(t *testing.T) {
	s := MustNew("games", []Field{
		String("title"),
		Integer("score"),
	})

	f, ok := s.Field("score")
	if !ok || f.Kind != KindInteger {
		t.Errorf("Field(score) = (%+v, %v)", f, ok)
	}
	if _, ok := s.Field("missing"); ok {
		t.Error("Field(missing) reported ok")
	}
	if got := s.FieldIndex("title"); got != 1 {
		t.Errorf("FieldIndex(title) = %d, want 1", got)
	}
	if got := s.FieldIndex("missing"); got != -1 {
		t.Errorf("FieldIndex(missing) = %d, want -1", got)
	}
}

func TestColumnOverride(t *testing.T) {
	s := MustNew("games", []Field{
		String("title", Column("display_title")),
	})

	f, _ := s.Field("title")
	if f.Column != "display_title" {
		t.Errorf("Column = %q, want display_title", f.Column)
	}
	cols := s.ColumnNames()
	if cols[1] != "display_title" {
		t.Errorf("ColumnNames()[1] = %q, want display_title", cols[1])
	}
}
