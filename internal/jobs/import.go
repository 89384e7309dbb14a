package jobs

import (
	"context"
	"fmt"
	"time"

	"starling/internal/config"
	"starling/internal/ingest"
	"starling/internal/logging"
	"starling/internal/metrics"
	"starling/internal/store/sqlitedb"
)

const (
	importedAtKey    = "import:last_at"
	importedUsersKey = "import:users_path"
)

// RunImport reads the CSV tables named by cfg and replaces the contents of db
// with them. The import time is recorded so later runs can report it.
func RunImport(ctx context.Context, db *sqlitedb.DB, cfg config.DataConfig) (*ingest.Dataset, error) {
	start := time.Now()
	metrics.IncCommandRun("import_job")
	ds, err := ingest.LoadCSV(cfg)
	if err != nil {
		metrics.IncCommandError("import_job")
		return nil, err
	}
	meta := map[string]string{
		importedAtKey:    time.Now().UTC().Format(time.RFC3339Nano),
		importedUsersKey: cfg.UsersPath,
	}
	if err := ingest.Store(ctx, db, ds, meta); err != nil {
		metrics.IncCommandError("import_job")
		return nil, fmt.Errorf("store tables: %w", err)
	}
	fields := ds.Summary()
	fields["took"] = time.Since(start).String()
	logging.Info("import_done", fields)
	return ds, nil
}

// LastImport returns when RunImport last completed against db, or
// sqlitedb.ErrNoMeta if it never has.
func LastImport(ctx context.Context, db *sqlitedb.DB) (time.Time, error) {
	v, err := db.LoadMeta(ctx, importedAtKey)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}
