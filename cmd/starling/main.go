package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"starling/internal/analytics"
	"starling/internal/cmdlog"
	"starling/internal/config"
	"starling/internal/engine"
	"starling/internal/ingest"
	"starling/internal/jobs"
	"starling/internal/logging"
	"starling/internal/metrics"
	"starling/internal/server"
	"starling/internal/store/sqlitedb"
	"starling/internal/theme"
)

const defaultConfigPath = "./starling.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdInit()
	case "import":
		err = cmdImport()
	case "serve":
		err = cmdServe()
	case "recommend":
		err = cmdRecommend()
	case "stats":
		err = cmdStats()
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: starling <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./starling.yaml")
	fmt.Println("  import      Copy the CSV tables into the SQLite store")
	fmt.Println("  serve       Build the models and serve the web UI and JSON API")
	fmt.Println("  recommend   One-shot recommendation (-kind popular|users|articles -name NAME)")
	fmt.Println("  stats       Show the popularity ranking and action breakdown")
}

// loadConfig reads path, falling back to defaults plus environment when the
// file does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		cfg.ResolveEnv()
		err = cfg.Validate()
	}
	if err != nil {
		return cfg, err
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func loadDataset(ctx context.Context, cfg config.Config) (*ingest.Dataset, error) {
	switch cfg.Data.Source {
	case config.SourceSQLite:
		db, err := sqlitedb.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return ingest.LoadSQLite(ctx, db)
	default:
		return ingest.LoadCSV(cfg.Data)
	}
}

func buildEngine(ctx context.Context, cfg config.Config) (*engine.Engine, *ingest.Dataset, error) {
	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := engine.OptionsFromConfig(cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(ctx, ds, opts)
	if err != nil {
		return nil, nil, err
	}
	return eng, ds, nil
}

func cmdInit() error {
	out := flag.NewFlagSet("init", flag.ExitOnError)
	path := out.String("path", defaultConfigPath, "path to write config")
	_ = out.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdImport() error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	return cmdlog.Run("import", func() error {
		db, err := sqlitedb.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		ds, err := jobs.RunImport(context.Background(), db, cfg.Data)
		if err != nil {
			return err
		}
		s := ds.Summary()
		fmt.Printf("Imported %v users, %v bios, %v posts, %v interactions into %s\n",
			s["users"], s["bios"], s["posts"], s["events"], cfg.Storage.DBPath)
		return nil
	})
}

func cmdServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	addr := fs.String("addr", "", "listen address (overrides config)")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(cfg.Metrics.Addr)
	return cmdlog.Run("serve", func() error {
		eng, _, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		srv, err := server.New(eng, cfg.Server)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	})
}

func cmdRecommend() error {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	kind := fs.String("kind", "popular", "popular | users | articles")
	name := fs.String("name", "", "user name to recommend for")
	k := fs.Int("k", 0, "answer size for users/articles (0 = config default)")
	_ = fs.Parse(os.Args[2:])
	if *name == "" {
		return errors.New("-name is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	return cmdlog.Run("recommend", func() error {
		eng, _, err := buildEngine(context.Background(), cfg)
		if err != nil {
			return err
		}
		size := *k
		if size <= 0 {
			size = eng.DefaultK()
		}
		switch *kind {
		case "popular":
			names, err := eng.PopularUsers(*name)
			if err != nil {
				return err
			}
			printList(names)
		case "users":
			names, err := eng.SimilarUsers(*name, size)
			if err != nil {
				return err
			}
			fmt.Printf("Up to %d users with a bio like %s:\n", size, *name)
			printList(names)
		case "articles":
			posts, err := eng.SimilarArticles(*name, size)
			if err != nil {
				return err
			}
			fmt.Printf("Up to %d articles for %s:\n", size, *name)
			for i, p := range posts {
				fmt.Printf("%2d. [%d] %s\n", i+1, p.Index, p.Title)
			}
		default:
			return fmt.Errorf("unknown -kind %q", *kind)
		}
		return nil
	})
}

func printList(names []string) {
	if len(names) == 0 {
		fmt.Println("No recommendations")
		return
	}
	for i, n := range names {
		fmt.Printf("%2d. %s\n", i+1, n)
	}
}

func cmdStats() error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	return cmdlog.Run("stats", func() error {
		ctx := context.Background()
		eng, ds, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Println("Popular users:")
		for i, r := range eng.Ranking() {
			fmt.Printf("%2d. %-24s id=%d score=%.3f\n", i+1, r.Name, r.UserID, r.Score)
		}
		counts := analytics.CountActions(ds.Events)
		var lastImport time.Time
		if cfg.Data.Source == config.SourceSQLite {
			db, err := sqlitedb.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if counts, err = db.ActionCounts(ctx); err != nil {
				return err
			}
			at, err := jobs.LastImport(ctx, db)
			if err != nil && !errors.Is(err, sqlitedb.ErrNoMeta) {
				return err
			}
			lastImport = at
		}
		fmt.Printf("Interactions: %d events over %d user/post pairs\n", len(ds.Events), analytics.DistinctPairs(ds.Events))
		for _, c := range analytics.Breakdown(counts) {
			fmt.Printf("  %-10s %d\n", c.Action, c.Count)
		}
		if !lastImport.IsZero() {
			fmt.Println("Last import:", lastImport.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	})
}
