package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aisview/internal/api"
	"aisview/pkg/cluster"
	"aisview/pkg/config"
	"aisview/pkg/db"
	"aisview/pkg/db/maintenance"
	"aisview/pkg/logging"
	"aisview/pkg/pasttrack"
	"aisview/pkg/probe"
	"aisview/pkg/registry"
	"aisview/pkg/store"
	"aisview/pkg/tracker"
	"aisview/pkg/version"
)

const defaultConfigPath = "configs/aisview.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("aisview started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	results := probe.Run(ctx, []probe.Probe{
		probe.Database(dbConn),
		probe.ArchiveQuery(st),
		probe.ImportFile(appCfg.DB.ImportCSV),
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if err := maintenance.Run(ctx, st, dbConn, appCfg.DB.ImportCSV, time.Duration(appCfg.DB.Retention)); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	tr := tracker.New()
	reg := registry.New()

	tracks, err := pasttrack.New(st, pasttrack.Config{
		Freshness: time.Duration(appCfg.PastTrack.Freshness),
		CacheSize: appCfg.PastTrack.CacheSize,
	}, tr)
	if err != nil {
		return err
	}

	vesselH := api.NewVesselHandler(reg, tracks, st, cluster.NewAggregator(appCfg.Cluster.Workers), api.VesselSettings{
		TTL:          time.Duration(appCfg.Targets.TTL),
		ClusterLimit: appCfg.Cluster.Limit,
		ClusterSize:  appCfg.Cluster.Size,
		TimeBack:     time.Duration(appCfg.PastTrack.TimeBack),
		MinDist:      float64(appCfg.PastTrack.MinDist),
	})
	statsH := api.NewStatsHandler(tr, reg, tracks)

	go runHousekeeping(ctx, appCfg, reg, dbConn)

	srv := api.NewServer(appCfg.Server.Address, vesselH, statsH)
	return runServerLifecycle(ctx, srv, time.Duration(appCfg.Server.ShutdownTimeout))
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// runHousekeeping drops dead vessels from the registry and expired messages
// from the archive until ctx is done.
func runHousekeeping(ctx context.Context, cfg *config.Config, reg *registry.Registry, d *db.DB) {
	ticker := time.NewTicker(time.Duration(cfg.Targets.PruneEvery))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := reg.Prune(now, time.Duration(cfg.Targets.TTL)); n > 0 {
				slog.Debug("Pruned dead vessels", "count", n)
			}
			if cfg.DB.Retention <= 0 {
				continue
			}
			if n, err := d.PruneMessages(time.Duration(cfg.DB.Retention)); err != nil {
				slog.Error("Archive pruning failed", "error", err)
			} else if n > 0 {
				slog.Debug("Pruned archived messages", "count", n)
			}
		}
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
