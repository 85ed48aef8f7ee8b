package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	_ "modernc.org/sqlite"

	"github.com/powdercast/powdercast/internal/api"
	"github.com/powdercast/powdercast/internal/catalog"
	"github.com/powdercast/powdercast/internal/config"
	"github.com/powdercast/powdercast/internal/forecast"
	"github.com/powdercast/powdercast/internal/ingest"
	"github.com/powdercast/powdercast/internal/orchestrator"
	"github.com/powdercast/powdercast/internal/scheduler"
	"github.com/powdercast/powdercast/internal/store"
)

func main() {
	dbPath := flag.String("db", "", "path to SQLite database (overrides DB_PATH)")
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	once := flag.Bool("once", false, "run one full-catalog refresh and exit")
	noPoll := flag.Bool("no-poll", false, "disable periodic refresh (server only, for local dev)")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *port != "" {
		cfg.Port = *port
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		slog.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	gridCache := ingest.NewGridCache(cfg.GridCacheSize)

	registry := orchestrator.NewRegistry(
		ingest.NewNWS(httpClient, cfg.NWSUserAgent, gridCache),
		ingest.NewOpenMeteo(httpClient, "gfs_seamless"),
		ingest.NewOpenMeteo(httpClient, "gem_seamless"),
		ingest.NewOpenMeteo(httpClient, "jma_seamless"),
		ingest.NewOpenMeteo(httpClient, "ecmwf_ifs025"),
	)

	orch := orchestrator.New(registry, orchestrator.Config{
		Policies: map[forecast.RateClass]orchestrator.BatchPolicy{
			forecast.RateClassLimited: {Size: cfg.LimitedBatchSize, Delay: cfg.LimitedBatchDelay},
			forecast.RateClassGlobal:  {Size: cfg.GlobalBatchSize, Delay: cfg.GlobalBatchDelay},
		},
		StormProbThreshold: cfg.StormProbThreshold,
		PowderThresholdIn:  cfg.PowderThresholdIn,
		AdapterTimeout:     cfg.HTTPTimeout,
	}, clockwork.NewRealClock())
	orch.SetFetchLog(st)

	locations := catalog.All()
	sched := scheduler.New(orch, st, locations, cfg.RefreshInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		slog.Info("running single refresh", "locations", len(locations))
		if err := sched.RunOnce(ctx); err != nil {
			slog.Error("refresh", "error", err)
			os.Exit(1)
		}
		return
	}

	if !*noPoll {
		if err := sched.Start(ctx); err != nil {
			slog.Error("start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	} else {
		slog.Info("periodic refresh disabled (--no-poll)")
	}

	server := api.NewServer(st, cfg.Port)
	slog.Info("starting server", "port", cfg.Port)
	if err := server.Run(ctx); err != nil && err != http.ErrServerClosed {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}
