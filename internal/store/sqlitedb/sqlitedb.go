package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"starling/internal/model"
)

// ErrNoMeta is returned when a meta key has never been written.
var ErrNoMeta = errors.New("meta key not set")

// DB wraps the SQLite database holding the source tables.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// Row order matters to the models, so every table keeps a position column.
func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS users (
	  pos INTEGER PRIMARY KEY,
	  user_id INTEGER NOT NULL,
	  name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS bios (
	  pos INTEGER PRIMARY KEY,
	  user_id INTEGER NOT NULL,
	  name TEXT NOT NULL,
	  short_bio TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS posts (
	  pos INTEGER PRIMARY KEY,
	  indexed INTEGER NOT NULL,
	  title TEXT NOT NULL,
	  content TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS interactions (
	  pos INTEGER PRIMARY KEY,
	  user_id INTEGER NOT NULL,
	  post_id INTEGER NOT NULL,
	  action TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);
	CREATE TABLE IF NOT EXISTS meta (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// Tables is everything an import writes.
type Tables struct {
	Users  []model.User
	Bios   []model.Bio
	Posts  []model.Post
	Events []model.InteractionEvent
	// Meta keys are upserted in the same transaction as the tables.
	Meta map[string]string
}

// ReplaceTables swaps the stored tables for t in one transaction.
func (d *DB) ReplaceTables(ctx context.Context, t Tables) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range []string{"users", "bios", "posts", "interactions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+name); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	if err := insertAll(ctx, tx, `INSERT INTO users(pos, user_id, name) VALUES(?,?,?)`, len(t.Users), func(i int) []any {
		return []any{i, t.Users[i].ID, t.Users[i].Name}
	}); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO bios(pos, user_id, name, short_bio) VALUES(?,?,?,?)`, len(t.Bios), func(i int) []any {
		return []any{i, t.Bios[i].UserID, t.Bios[i].Name, t.Bios[i].ShortBio}
	}); err != nil {
		return fmt.Errorf("insert bios: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO posts(pos, indexed, title, content) VALUES(?,?,?,?)`, len(t.Posts), func(i int) []any {
		return []any{i, t.Posts[i].Index, t.Posts[i].Title, t.Posts[i].Content}
	}); err != nil {
		return fmt.Errorf("insert posts: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO interactions(pos, user_id, post_id, action) VALUES(?,?,?,?)`, len(t.Events), func(i int) []any {
		e := t.Events[i]
		return []any{i, e.UserID, e.PostID, string(e.Action)}
	}); err != nil {
		return fmt.Errorf("insert interactions: %w", err)
	}
	for k, v := range t.Meta {
		if _, err := tx.ExecContext(ctx, upsertMeta, k, v); err != nil {
			return fmt.Errorf("meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) LoadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT user_id, name FROM users ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) LoadBios(ctx context.Context) ([]model.Bio, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT user_id, name, short_bio FROM bios ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bio
	for rows.Next() {
		var b model.Bio
		if err := rows.Scan(&b.UserID, &b.Name, &b.ShortBio); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (d *DB) LoadPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT indexed, title, content FROM posts ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.Index, &p.Title, &p.Content); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadEvents returns interactions in insertion order. The stored action text
// is checked against the known kinds.
func (d *DB) LoadEvents(ctx context.Context) ([]model.InteractionEvent, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT user_id, post_id, action FROM interactions ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.InteractionEvent
	for rows.Next() {
		var e model.InteractionEvent
		var act string
		if err := rows.Scan(&e.UserID, &e.PostID, &act); err != nil {
			return nil, err
		}
		if e.Action, err = model.ParseAction(act); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActionCounts tallies interactions per action kind.
func (d *DB) ActionCounts(ctx context.Context) (map[model.Action]int, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT action, COUNT(*) FROM interactions GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Action]int)
	for rows.Next() {
		var act string
		var n int
		if err := rows.Scan(&act, &n); err != nil {
			return nil, err
		}
		out[model.Action(act)] = n
	}
	return out, rows.Err()
}

const upsertMeta = `INSERT INTO meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`

// SaveMeta upserts a key.
func (d *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, upsertMeta, key, value)
	return err
}

func (d *DB) LoadMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMeta
	}
	return v, err
}
