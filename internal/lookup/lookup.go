// Package lookup maps external identifiers (display names, user IDs) to row
// positions in a loaded table and back. Each table gets its own Table because
// the users, biography and posts tables order their rows differently.
package lookup

import (
	"errors"
	"fmt"

	"starling/internal/util"
)

var (
	ErrNameNotFound  = errors.New("name not found")
	ErrIDNotFound    = errors.New("id not found")
	ErrRowOutOfRange = errors.New("row out of range")
)

// Entry is one row of a keyed table.
type Entry struct {
	ID   int
	Name string
}

// Table is an immutable name/id index over table rows.
// When several rows share a name the first row wins.
type Table struct {
	label   string
	entries []Entry
	byName  map[string]int
	byID    map[int]int
	dups    []string
}

// New indexes entries in order. Names are normalized to lower case.
func New(label string, entries []Entry) *Table {
	t := &Table{
		label:   label,
		entries: make([]Entry, len(entries)),
		byName:  make(map[string]int, len(entries)),
		byID:    make(map[int]int, len(entries)),
	}
	seenDup := make(map[string]bool)
	for i, e := range entries {
		e.Name = util.NormalizeName(e.Name)
		t.entries[i] = e
		if _, ok := t.byName[e.Name]; ok {
			if !seenDup[e.Name] {
				t.dups = append(t.dups, e.Name)
				seenDup[e.Name] = true
			}
		} else {
			t.byName[e.Name] = i
		}
		if _, ok := t.byID[e.ID]; !ok {
			t.byID[e.ID] = i
		}
	}
	return t
}

func (t *Table) Label() string { return t.label }

func (t *Table) Len() int { return len(t.entries) }

// Duplicates lists names shared by more than one row, in first-seen order.
func (t *Table) Duplicates() []string {
	return append([]string(nil), t.dups...)
}

// RowOf resolves a name, case-insensitively, to its row.
func (t *Table) RowOf(name string) (int, error) {
	key := util.NormalizeName(name)
	row, ok := t.byName[key]
	if !ok || key == "" {
		return 0, fmt.Errorf("%s: %q: %w", t.label, name, ErrNameNotFound)
	}
	return row, nil
}

// RowOfID resolves a user id to its row.
func (t *Table) RowOfID(id int) (int, error) {
	row, ok := t.byID[id]
	if !ok {
		return 0, fmt.Errorf("%s: id %d: %w", t.label, id, ErrIDNotFound)
	}
	return row, nil
}

func (t *Table) At(row int) (Entry, error) {
	if row < 0 || row >= len(t.entries) {
		return Entry{}, fmt.Errorf("%s: row %d: %w", t.label, row, ErrRowOutOfRange)
	}
	return t.entries[row], nil
}

// NameOfID returns the name stored for id.
func (t *Table) NameOfID(id int) (string, error) {
	row, err := t.RowOfID(id)
	if err != nil {
		return "", err
	}
	return t.entries[row].Name, nil
}

// Names maps rows to names, preserving order.
func (t *Table) Names(rows []int) ([]string, error) {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		e, err := t.At(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e.Name)
	}
	return out, nil
}
