package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"starling/internal/config"
	"starling/internal/logging"
	"starling/internal/model"
	"starling/internal/util"
)

// LoadCSV reads all four tables named in cfg.
func LoadCSV(cfg config.DataConfig) (*Dataset, error) {
	var ds Dataset
	var err error
	if ds.Users, err = readFile(cfg.UsersPath, ReadUsers); err != nil {
		return nil, err
	}
	if ds.Bios, err = readFile(cfg.BiosPath, ReadBios); err != nil {
		return nil, err
	}
	if ds.Posts, err = readFile(cfg.PostsPath, ReadPosts); err != nil {
		return nil, err
	}
	if ds.Events, err = readFile(cfg.InteractionsPath, ReadInteractions); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	logging.Info("dataset_loaded", ds.Summary())
	return &ds, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// table is a header-addressed CSV reader.
type table struct {
	r    *csv.Reader
	cols map[string]int
	line int
}

func newTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header: %w", ErrMalformedTable)
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := cols[h]; !ok {
			cols[h] = i
		}
	}
	return &table{r: cr, cols: cols, line: 1}, nil
}

func (t *table) require(names ...string) error {
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			return fmt.Errorf("missing column %q: %w", n, ErrMalformedTable)
		}
	}
	return nil
}

func (t *table) has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// next returns the next record, or io.EOF.
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	t.line++
	return rec, err
}

func (t *table) field(rec []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// nameField returns the normalized name column, rejecting blanks.
func (t *table) nameField(rec []string) (string, error) {
	n := util.NormalizeName(t.field(rec, "name"))
	if n == "" {
		return "", fmt.Errorf("line %d: blank name: %w", t.line, ErrMalformedTable)
	}
	return n, nil
}

func (t *table) intField(rec []string, name string) (int, error) {
	v := t.field(rec, name)
	n, err := strconv.Atoi(v)
	if err != nil {
		// pandas writes integer columns with missing values as floats
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("line %d: %s=%q is not an integer: %w", t.line, name, v, ErrMalformedTable)
		}
		n = int(f)
	}
	return n, nil
}

// ReadUsers reads a (user_id, name) table.
func ReadUsers(r io.Reader) ([]model.User, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("user_id", "name"); err != nil {
		return nil, err
	}
	var out []model.User
	for {
		rec, err := t.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		id, err := t.intField(rec, "user_id")
		if err != nil {
			return nil, err
		}
		name, err := t.nameField(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.User{ID: id, Name: name})
	}
}

// ReadBios reads a (user_id, name, short_bio) table. Rows with a blank
// biography are dropped; those users have no text to compare.
func ReadBios(r io.Reader) ([]model.Bio, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("user_id", "name", "short_bio"); err != nil {
		return nil, err
	}
	var out []model.Bio
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id, err := t.intField(rec, "user_id")
		if err != nil {
			return nil, err
		}
		name, err := t.nameField(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Bio{
			UserID:   id,
			Name:     name,
			ShortBio: util.NormalizeWhitespace(t.field(rec, "short_bio")),
		})
	}
	out, dropped := dropEmptyBios(out)
	if dropped > 0 {
		logging.Warn("bios_without_text", map[string]any{"dropped": dropped})
	}
	return out, nil
}

// ReadPosts reads a (indexed, title, content) table. The index column is
// optional; row position is used when it is absent.
func ReadPosts(r io.Reader) ([]model.Post, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("title", "content"); err != nil {
		return nil, err
	}
	var out []model.Post
	for {
		rec, err := t.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		idx := len(out)
		if t.has("indexed") {
			if idx, err = t.intField(rec, "indexed"); err != nil {
				return nil, err
			}
		}
		out = append(out, model.Post{
			Index:   idx,
			Title:   util.NormalizeWhitespace(t.field(rec, "title")),
			Content: t.field(rec, "content"),
		})
	}
}

// ReadInteractions reads a (user_id, post_id, action) table. An action
// outside the strength table fails the read.
func ReadInteractions(r io.Reader) ([]model.InteractionEvent, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require("user_id", "post_id", "action"); err != nil {
		return nil, err
	}
	var out []model.InteractionEvent
	for {
		rec, err := t.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		uid, err := t.intField(rec, "user_id")
		if err != nil {
			return nil, err
		}
		pid, err := t.intField(rec, "post_id")
		if err != nil {
			return nil, err
		}
		act, err := model.ParseAction(t.field(rec, "action"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		out = append(out, model.InteractionEvent{UserID: uid, PostID: pid, Action: act})
	}
}
