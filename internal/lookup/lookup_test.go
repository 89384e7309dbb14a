package lookup

import (
	"errors"
	"reflect"
	"testing"
)

func fixture() *Table {
	return New("users", []Entry{
		{ID: 10, Name: "Alice"},
		{ID: 11, Name: "bob"},
		{ID: 12, Name: "ALICE"},
		{ID: 13, Name: " Carol  Ann "},
	})
}

func TestRowOfIsCaseInsensitive(t *testing.T) {
	tbl := fixture()
	for _, q := range []string{"Alice", "alice", "  aLiCe "} {
		row, err := tbl.RowOf(q)
		if err != nil {
			t.Fatalf("%q: %v", q, err)
		}
		if row != 0 {
			t.Fatalf("%q: expected first match row 0, got %d", q, row)
		}
	}
	row, err := tbl.RowOf("carol ann")
	if err != nil || row != 3 {
		t.Fatalf("expected row 3, got %d %v", row, err)
	}
}

func TestRowOfMissing(t *testing.T) {
	_, err := fixture().RowOf("dave")
	if !errors.Is(err, ErrNameNotFound) {
		t.Fatalf("expected ErrNameNotFound, got %v", err)
	}
}

func TestRowOfBlankNeverMatches(t *testing.T) {
	tbl := New("users", []Entry{{ID: 1, Name: ""}, {ID: 2, Name: "bob"}})
	for _, q := range []string{"", "   "} {
		if _, err := tbl.RowOf(q); !errors.Is(err, ErrNameNotFound) {
			t.Fatalf("%q: expected ErrNameNotFound, got %v", q, err)
		}
	}
}

func TestDuplicatesReported(t *testing.T) {
	if got := fixture().Duplicates(); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("got %v", got)
	}
}

func TestIDAndRowMapping(t *testing.T) {
	tbl := fixture()
	row, err := tbl.RowOfID(11)
	if err != nil || row != 1 {
		t.Fatalf("got %d %v", row, err)
	}
	name, err := tbl.NameOfID(12)
	if err != nil || name != "alice" {
		t.Fatalf("got %q %v", name, err)
	}
	if _, err := tbl.RowOfID(99); !errors.Is(err, ErrIDNotFound) {
		t.Fatalf("expected ErrIDNotFound, got %v", err)
	}
	names, err := tbl.Names([]int{3, 1})
	if err != nil || !reflect.DeepEqual(names, []string{"carol ann", "bob"}) {
		t.Fatalf("got %v %v", names, err)
	}
	if _, err := tbl.At(4); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}
