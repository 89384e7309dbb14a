package util

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Cats, are GREAT! a b go-lang 42 héllo")
	want := []string{"cats", "are", "great", "go", "lang", "42", "héllo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(Tokenize("  ")) != 0 {
		t.Fatalf("expected no tokens for blank input")
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Alice   Smith "); got != "alice smith" {
		t.Fatalf("got %q", got)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Snippet("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := Snippet("a\n b", 0); got != "a b" {
		t.Fatalf("got %q", got)
	}
}
