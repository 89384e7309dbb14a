package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"starling/internal/config"
	"starling/internal/ingest"
	"starling/internal/model"
	"starling/internal/similarity"
)

func fixture() *ingest.Dataset {
	return &ingest.Dataset{
		Users: []model.User{
			{ID: 0, Name: "alice"},
			{ID: 1, Name: "bob"},
			{ID: 2, Name: "carol"},
			{ID: 3, Name: "dave"},
			{ID: 4, Name: "erin"},
		},
		Bios: []model.Bio{
			{UserID: 0, Name: "alice", ShortBio: "golang backend engineer who loves databases"},
			{UserID: 1, Name: "bob", ShortBio: "frontend designer and illustrator"},
			{UserID: 2, Name: "carol", ShortBio: "backend engineer writing golang services"},
			{UserID: 3, Name: "dave", ShortBio: "illustrator painting watercolor landscapes"},
		},
		Posts: []model.Post{
			{Index: 0, Title: "Concurrency patterns in golang", Content: "Channels and goroutines."},
			{Index: 1, Title: "Watercolor landscapes for beginners", Content: "Start with washes."},
			{Index: 2, Title: "Golang concurrency pitfalls", Content: "Data races."},
		},
		Events: []model.InteractionEvent{
			{UserID: 0, PostID: 1, Action: model.Like},
			{UserID: 0, PostID: 2, Action: model.Love},
			{UserID: 1, PostID: 1, Action: model.Followed},
			{UserID: 2, PostID: 1, Action: model.Commented},
			{UserID: 2, PostID: 2, Action: model.Replied},
			{UserID: 9, PostID: 1, Action: model.Like},
			{UserID: 9, PostID: 3, Action: model.Like},
		},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(context.Background(), fixture(), Options{K: 10, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestPopularUsers(t *testing.T) {
	e := newEngine(t)
	// carol 8 -> log2(9), alice 3 -> log2(4), user 9 2 -> log2(3); bob is ineligible
	got, err := e.PopularUsers("Alice")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"carol", "user 9"}) {
		t.Fatalf("got %v", got)
	}
	got, err = e.PopularUsers("bob")
	if err != nil || !reflect.DeepEqual(got, []string{"carol", "alice", "user 9"}) {
		t.Fatalf("got %v %v", got, err)
	}
	if _, err := e.PopularUsers("zed"); !errors.Is(err, ErrNameNotFound) {
		t.Fatalf("expected ErrNameNotFound, got %v", err)
	}
}

func TestDefaultK(t *testing.T) {
	if k := newEngine(t).DefaultK(); k != 10 {
		t.Fatalf("configured k = %d", k)
	}
	e, err := New(context.Background(), fixture(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if e.DefaultK() != similarity.DefaultK {
		t.Fatalf("unset k = %d", e.DefaultK())
	}
}

func TestRankingNames(t *testing.T) {
	r := newEngine(t).Ranking()
	if len(r) != 3 || r[0].Name != "carol" || r[0].UserID != 2 || r[0].Score <= r[1].Score {
		t.Fatalf("got %+v", r)
	}
}

func TestSimilarUsers(t *testing.T) {
	e := newEngine(t)
	got, err := e.SimilarUsers("ALICE", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"carol"}) {
		t.Fatalf("got %v", got)
	}
	all, err := e.SimilarUsers("alice", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected the other 3 bios, got %v %v", all, err)
	}
	for _, n := range all {
		if n == "alice" {
			t.Fatalf("self returned: %v", all)
		}
	}
}

func TestSimilarUsersFailures(t *testing.T) {
	e := newEngine(t)
	// erin is a user without a biography
	_, err := e.SimilarUsers("erin", 5)
	if !errors.Is(err, ErrNoText) || Reason(err) != "no_text" {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	_, err = e.SimilarUsers("nobody", 5)
	if !errors.Is(err, ErrNameNotFound) || Reason(err) != "name_not_found" {
		t.Fatalf("expected ErrNameNotFound, got %v", err)
	}
}

func TestSimilarUsersWeightlessBio(t *testing.T) {
	ds := fixture()
	// every term of erin's bio appears in all bios, so it carries no weight
	ds.Bios = []model.Bio{
		{UserID: 0, Name: "alice", ShortBio: "golang developer databases"},
		{UserID: 1, Name: "bob", ShortBio: "golang developer frontend"},
		{UserID: 4, Name: "erin", ShortBio: "golang developer"},
	}
	e, err := New(context.Background(), ds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.SimilarUsers("erin", 2)
	if !errors.Is(err, ErrNoText) || !errors.Is(err, similarity.ErrEmptyRow) || Reason(err) != "no_text" {
		t.Fatalf("expected ErrNoText wrapping ErrEmptyRow, got %v", err)
	}
	if _, err := e.SimilarUsers("alice", 2); err != nil {
		t.Fatal(err)
	}
}

func TestSimilarArticles(t *testing.T) {
	e := newEngine(t)
	posts, err := e.SimilarArticles("alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].Index != 2 {
		t.Fatalf("got %+v", posts)
	}
	// dave is row 3 and there are only 3 posts
	_, err = e.SimilarArticles("dave", 5)
	if !errors.Is(err, ErrNoText) || !errors.Is(err, similarity.ErrUnknownRowIndex) {
		t.Fatalf("expected ErrNoText wrapping ErrUnknownRowIndex, got %v", err)
	}
	if _, err := e.SimilarArticles("nobody", 5); !errors.Is(err, ErrNameNotFound) {
		t.Fatalf("expected ErrNameNotFound, got %v", err)
	}
}

func TestNewRejectsUnknownAction(t *testing.T) {
	ds := fixture()
	ds.Events = append(ds.Events, model.InteractionEvent{UserID: 1, PostID: 2, Action: "Shared"})
	if _, err := New(context.Background(), ds, Options{}); !errors.Is(err, model.ErrUnknownActionKind) {
		t.Fatalf("expected ErrUnknownActionKind, got %v", err)
	}
}

func TestPartialStrengthTableRejected(t *testing.T) {
	ds := fixture()
	opts := Options{Strengths: model.StrengthTable{model.Like: 1, model.Love: 1, model.Followed: 1}}
	// carol's comment/reply are not in the table
	if _, err := New(context.Background(), ds, opts); !errors.Is(err, model.ErrUnknownActionKind) {
		t.Fatalf("expected ErrUnknownActionKind, got %v", err)
	}
}

func TestOptionsFromConfigMergesStrengths(t *testing.T) {
	opts, err := OptionsFromConfig(config.ModelConfig{
		TopN: 10, MinInteractions: 2, K: 10,
		Strengths: map[string]float64{"Like": 1, "Love": 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(context.Background(), fixture(), opts)
	if err != nil {
		t.Fatalf("partial override must keep the other actions: %v", err)
	}
	got, err := e.PopularUsers("alice")
	if err != nil || !reflect.DeepEqual(got, []string{"carol", "user 9"}) {
		t.Fatalf("got %v %v", got, err)
	}

	// alice: Like 1 + Love 10 = 11 beats carol's 8
	opts, err = OptionsFromConfig(config.ModelConfig{Strengths: map[string]float64{"love": 10}})
	if err != nil {
		t.Fatal(err)
	}
	e, err = New(context.Background(), fixture(), opts)
	if err != nil {
		t.Fatal(err)
	}
	got, err = e.PopularUsers("bob")
	if err != nil || !reflect.DeepEqual(got, []string{"alice", "carol", "user 9"}) {
		t.Fatalf("got %v %v", got, err)
	}
}

func TestConcurrentQueriesAreStable(t *testing.T) {
	e := newEngine(t)
	want, _ := e.PopularUsers("alice")
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names := []string{"alice", "bob", "carol", "dave"}
			_, _ = e.PopularUsers(names[i%4])
			_, _ = e.SimilarUsers(names[i%4], 2)
			got, err := e.PopularUsers("alice")
			if err != nil || !reflect.DeepEqual(got, want) {
				errs <- errors.New("popular users changed under concurrent use")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
