package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kimifish/music2db-client/internal/catalog"
	"github.com/kimifish/music2db-client/internal/config"
	"github.com/kimifish/music2db-client/internal/history"
	"github.com/kimifish/music2db-client/internal/logging"
	"github.com/kimifish/music2db-client/internal/metadata"
	"github.com/kimifish/music2db-client/internal/metrics"
	"github.com/kimifish/music2db-client/internal/scanner"
	"github.com/kimifish/music2db-client/internal/scheduler"
	"github.com/kimifish/music2db-client/internal/state"
	"github.com/kimifish/music2db-client/internal/version"
	"github.com/kimifish/music2db-client/internal/watcher"
)

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		runOnce     bool
		dontScanNow bool
	)

	cmd := &cobra.Command{
		Use:   "music2db",
		Short: "Music2DB client: scans a music library and syncs metadata to the catalog server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath, runOnce, dontScanNow)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file location")
	cmd.Flags().BoolVar(&runOnce, "run-once", false, "run the scan once and exit")
	cmd.Flags().BoolVar(&dontScanNow, "dont-scan-now", false, "don't run the scan immediately")

	cmd.AddCommand(newShowMetadataCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func runDaemon(configPath string, runOnce, dontScanNow bool) error {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting music2db", "version", version.Version, "music_path", cfg.Music.Path)

	client := catalog.NewClient(cfg.Server, logger)
	store := state.NewStore(cfg.State.Dir, logger)
	scanSvc := scanner.NewService(cfg, client, metadata.NewTagExtractor(), store, logger)

	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("opening scan history, continuing without it", "error", err)
		} else {
			defer db.Close() //nolint:errcheck
			if err := history.Migrate(db); err != nil {
				logger.Error("migrating scan history, continuing without it", "error", err)
			} else {
				scanSvc.SetHistory(history.NewStore(db))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runScan := func() {
		if _, err := scanSvc.Run(ctx); err != nil {
			if errors.Is(err, scanner.ErrScanInProgress) {
				logger.Info("scan already in progress, ignoring trigger")
				return
			}
			logger.Error("scan failed", "error", err)
		}
	}

	if !dontScanNow {
		runScan()
	}
	if runOnce {
		logger.Info("run once flag set, exiting")
		return nil
	}

	sched, err := scheduler.New(cfg.Music.ScanTime, runScan, logger)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Music.Watch {
		go watcher.NewService(cfg.Music.Path, runScan, logger).Start(ctx)
	}

	if cfg.Metrics.Enabled {
		metrics.InitializeScanResults()
		go serveMetrics(ctx, cfg.Metrics.Port, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down music2db")
	return nil
}

// serveMetrics exposes the Prometheus endpoint until ctx is canceled.
func serveMetrics(ctx context.Context, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics endpoint failed", "error", err)
	}
}

// resolveConfigPath picks the config file from the flag, the environment,
// or the per-user XDG config location, in that order.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if v := os.Getenv("M2D_CONFIG_PATH"); v != "" {
		return v
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "music2db", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "music2db", "config.yaml")
}
