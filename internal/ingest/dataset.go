package ingest

import (
	"errors"
	"fmt"
	"strings"

	"starling/internal/model"
)

// ErrMalformedTable wraps every structural problem found while reading a table.
var ErrMalformedTable = errors.New("malformed table")

// Dataset is the in-memory copy of the four source tables, in file order.
type Dataset struct {
	Users  []model.User
	Bios   []model.Bio
	Posts  []model.Post
	Events []model.InteractionEvent
}

// Summary is a loggable size report.
func (d *Dataset) Summary() map[string]any {
	return map[string]any{
		"users":  len(d.Users),
		"bios":   len(d.Bios),
		"posts":  len(d.Posts),
		"events": len(d.Events),
	}
}

// Validate checks the cross-table requirements the models rely on.
func (d *Dataset) Validate() error {
	if len(d.Users) == 0 {
		return fmt.Errorf("users: no rows: %w", ErrMalformedTable)
	}
	if len(d.Bios) == 0 {
		return fmt.Errorf("bios: no rows: %w", ErrMalformedTable)
	}
	if len(d.Posts) == 0 {
		return fmt.Errorf("posts: no rows: %w", ErrMalformedTable)
	}
	for i, u := range d.Users {
		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("users: row %d (id %d): blank name: %w", i, u.ID, ErrMalformedTable)
		}
	}
	for i, b := range d.Bios {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("bios: row %d (id %d): blank name: %w", i, b.UserID, ErrMalformedTable)
		}
	}
	for i, e := range d.Events {
		if _, err := model.ParseAction(string(e.Action)); err != nil {
			return fmt.Errorf("interactions: event %d: %w", i, err)
		}
	}
	return nil
}

// PostTitles is the article similarity corpus.
func (d *Dataset) PostTitles() []string {
	out := make([]string, len(d.Posts))
	for i, p := range d.Posts {
		out[i] = p.Title
	}
	return out
}

// BioTexts is the user similarity corpus.
func (d *Dataset) BioTexts() []string {
	out := make([]string, len(d.Bios))
	for i, b := range d.Bios {
		out[i] = b.ShortBio
	}
	return out
}

// dropEmptyBios removes rows that cannot take part in similarity.
func dropEmptyBios(bios []model.Bio) ([]model.Bio, int) {
	out := bios[:0:0]
	dropped := 0
	for _, b := range bios {
		if strings.TrimSpace(b.ShortBio) == "" {
			dropped++
			continue
		}
		out = append(out, b)
	}
	return out, dropped
}
