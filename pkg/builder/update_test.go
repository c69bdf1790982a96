package builder

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

func TestUpdateCompilesSetBeforeWhere(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	qs := NewQuerySet(gameSchema(t), store).Filter(Gt("score", 100))

	if _, err := qs.Update(ctx, map[string]any{"score": 1, "genre": "g"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// SET columns in schema order, SET arguments before WHERE arguments.
	want := "UPDATE games SET genre = ?, score = ? WHERE score > ?"
	if store.lastSQL != want {
		t.Errorf("compiled %q, want %q", store.lastSQL, want)
	}
	wantArgs := []any{"g", int64(1), int64(100)}
	if !reflect.DeepEqual(store.lastArgs, wantArgs) {
		t.Errorf("args = %#v, want %#v", store.lastArgs, wantArgs)
	}
}

func TestUpdateMatchedRows(t *testing.T) {
	ctx := context.Background()
	m := seedGames(t)

	n, err := m.Query().Filter(Eq("title", "chess")).Update(ctx, map[string]any{"score": 2000})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("matched %d rows, want 1", n)
	}

	inst, err := m.Get(ctx, Eq("title", "chess"))
	if err != nil {
		t.Fatal(err)
	}
	if inst.GetInt("score") != 2000 {
		t.Errorf("score = %d after update", inst.GetInt("score"))
	}

	other, err := m.Get(ctx, Eq("title", "go"))
	if err != nil {
		t.Fatal(err)
	}
	if other.GetInt("score") != 900 {
		t.Errorf("unrelated row changed: score = %d", other.GetInt("score"))
	}
}

func TestUpdateCoercesChanges(t *testing.T) {
	ctx := context.Background()
	m := seedGames(t)

	if _, err := m.Query().Filter(Eq("title", "draughts")).Update(ctx, map[string]any{"is_published": true}); err != nil {
		t.Fatal(err)
	}

	rows, err := m.Query().Filter(Eq("title", "draughts")).AllRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["is_published"] != int64(1) {
		t.Errorf("stored is_published = %v, want 1", rows[0]["is_published"])
	}
}

func TestUpdateRefusesUnfiltered(t *testing.T) {
	m := seedGames(t)

	_, err := m.Query().Update(context.Background(), map[string]any{"score": 0})
	if !errors.Is(err, ErrUnfilteredWrite) {
		t.Fatalf("err = %v, want ErrUnfilteredWrite", err)
	}

	n, err := m.Query().Filter(Gt("score", 1000)).Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("refused update still ran: %d rows over 1000", n)
	}
}

func TestUpdateRejectsUnknownField(t *testing.T) {
	m := seedGames(t)

	_, err := m.Query().Filter(Eq("id", 1)).Update(context.Background(), map[string]any{"bogus": 1})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "bogus" {
		t.Errorf("Field = %q", verr.Field)
	}
}

func TestUpdateRequiresChanges(t *testing.T) {
	m := seedGames(t)

	if _, err := m.Query().Filter(Eq("id", 1)).Update(context.Background(), nil); err == nil {
		t.Fatal("empty change set accepted")
	}
}
