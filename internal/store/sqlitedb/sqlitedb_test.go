package sqlitedb

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"starling/internal/model"
)

func openMem(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleTables() Tables {
	return Tables{
		Users: []model.User{{ID: 3, Name: "carol"}, {ID: 1, Name: "alice"}},
		Bios:  []model.Bio{{UserID: 1, Name: "alice", ShortBio: "go and databases"}},
		Posts: []model.Post{{Index: 0, Title: "Go tips", Content: "Use contexts."}, {Index: 1, Title: "SQL", Content: "Index things."}},
		Events: []model.InteractionEvent{
			{UserID: 1, PostID: 0, Action: model.Like},
			{UserID: 1, PostID: 1, Action: model.Commented},
			{UserID: 3, PostID: 0, Action: model.Like},
		},
	}
}

func TestReplaceAndLoadPreservesOrder(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()
	in := sampleTables()
	if err := db.ReplaceTables(ctx, in); err != nil {
		t.Fatal(err)
	}
	users, err := db.LoadUsers(ctx)
	if err != nil || !reflect.DeepEqual(users, in.Users) {
		t.Fatalf("users: %v %v", users, err)
	}
	bios, err := db.LoadBios(ctx)
	if err != nil || !reflect.DeepEqual(bios, in.Bios) {
		t.Fatalf("bios: %v %v", bios, err)
	}
	posts, err := db.LoadPosts(ctx)
	if err != nil || !reflect.DeepEqual(posts, in.Posts) {
		t.Fatalf("posts: %v %v", posts, err)
	}
	events, err := db.LoadEvents(ctx)
	if err != nil || !reflect.DeepEqual(events, in.Events) {
		t.Fatalf("events: %v %v", events, err)
	}

	// a second import replaces rather than appends
	in.Users = in.Users[:1]
	if err := db.ReplaceTables(ctx, in); err != nil {
		t.Fatal(err)
	}
	users, _ = db.LoadUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("expected replace, got %v", users)
	}
}

func TestReplaceTablesWritesMetaAtomically(t *testing.T) {
	db := openMem(t)
	in := sampleTables()
	in.Meta = map[string]string{"import:last_at": "t1"}
	if err := db.ReplaceTables(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if v, err := db.LoadMeta(context.Background(), "import:last_at"); err != nil || v != "t1" {
		t.Fatalf("meta: %q %v", v, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in.Meta = map[string]string{"import:last_at": "t2"}
	if err := db.ReplaceTables(ctx, in); err == nil {
		t.Fatal("expected an error on a cancelled context")
	}
	if v, _ := db.LoadMeta(context.Background(), "import:last_at"); v != "t1" {
		t.Fatalf("failed replace changed meta to %q", v)
	}
}

func TestActionCounts(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()
	counts, err := db.ActionCounts(ctx)
	if err != nil || len(counts) != 0 {
		t.Fatalf("empty store: %v %v", counts, err)
	}
	if err := db.ReplaceTables(ctx, sampleTables()); err != nil {
		t.Fatal(err)
	}
	counts, err = db.ActionCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[model.Action]int{model.Like: 2, model.Commented: 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("got %v want %v", counts, want)
	}
}

func TestLoadEventsRejectsUnknownAction(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()
	tables := sampleTables()
	tables.Events = append(tables.Events, model.InteractionEvent{UserID: 1, PostID: 1, Action: "Poked"})
	if err := db.ReplaceTables(ctx, tables); err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadEvents(ctx); !errors.Is(err, model.ErrUnknownActionKind) {
		t.Fatalf("expected ErrUnknownActionKind, got %v", err)
	}
}

func TestMeta(t *testing.T) {
	db := openMem(t)
	ctx := context.Background()
	if _, err := db.LoadMeta(ctx, "imported_at"); !errors.Is(err, ErrNoMeta) {
		t.Fatalf("expected ErrNoMeta, got %v", err)
	}
	if err := db.SaveMeta(ctx, "imported_at", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta(ctx, "imported_at", "b"); err != nil {
		t.Fatal(err)
	}
	v, err := db.LoadMeta(ctx, "imported_at")
	if err != nil || v != "b" {
		t.Fatalf("got %q %v", v, err)
	}
}
