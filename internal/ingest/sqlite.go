package ingest

import (
	"context"
	"fmt"

	"starling/internal/logging"
	"starling/internal/store/sqlitedb"
)

// LoadSQLite reads the tables previously imported into db.
func LoadSQLite(ctx context.Context, db *sqlitedb.DB) (*Dataset, error) {
	var ds Dataset
	var err error
	if ds.Users, err = db.LoadUsers(ctx); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if ds.Bios, err = db.LoadBios(ctx); err != nil {
		return nil, fmt.Errorf("load bios: %w", err)
	}
	ds.Bios, _ = dropEmptyBios(ds.Bios)
	if ds.Posts, err = db.LoadPosts(ctx); err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if ds.Events, err = db.LoadEvents(ctx); err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	logging.Info("dataset_loaded", ds.Summary())
	return &ds, nil
}

// Store writes ds into db, replacing whatever was there. meta is written in
// the same transaction and may be nil.
func Store(ctx context.Context, db *sqlitedb.DB, ds *Dataset, meta map[string]string) error {
	return db.ReplaceTables(ctx, sqlitedb.Tables{
		Users:  ds.Users,
		Bios:   ds.Bios,
		Posts:  ds.Posts,
		Events: ds.Events,
		Meta:   meta,
	})
}
