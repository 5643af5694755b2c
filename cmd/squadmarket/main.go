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

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/config"
	"github.com/jensholdgaard/squadmarket/internal/health"
	"github.com/jensholdgaard/squadmarket/internal/idem"
	"github.com/jensholdgaard/squadmarket/internal/leader"
	"github.com/jensholdgaard/squadmarket/internal/notify"
	"github.com/jensholdgaard/squadmarket/internal/store"
	"github.com/jensholdgaard/squadmarket/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/squadmarket/internal/store/memstore"
	_ "github.com/jensholdgaard/squadmarket/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open store using the configured driver.
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to store", slog.String("driver", cfg.Database.Driver))

	// The engines are embedded by the hosting layer; this process runs the
	// pieces that need exactly one instance: the idempotency janitor and the
	// inbox delivery relay.
	guard := idem.NewGuard(repos, logger, tp.TracerProvider, clk)

	// Setup health checks.
	healthHandler := health.NewHandler(clk, health.StoreChecker(repos))

	// Start HTTP server for health checks (runs on all replicas).
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	// startWorkers is the background work only the leader should run:
	// inbox delivery and response-cache pruning.
	startWorkers := func(ctx context.Context) {
		if cfg.Notify.Enabled {
			sender, senderErr := notify.NewDiscordSender(cfg.Notify)
			if senderErr != nil {
				logger.ErrorContext(ctx, "creating discord sender failed", slog.Any("error", senderErr))
				return
			}
			defer sender.Close()

			relay := notify.NewRelay(repos, sender, cfg.Notify.Interval, logger, clk)
			go relay.Run(ctx)
		}

		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, pruneErr := guard.PruneExpired(ctx); pruneErr != nil {
						logger.ErrorContext(ctx, "pruning response cache failed", slog.Any("error", pruneErr))
					}
				}
			}
		}()

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "squadmarket is running (leader)", slog.String("version", version))

		// Block until leadership is lost or process is shutting down.
		<-ctx.Done()
		healthHandler.SetReady(false)
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, startWorkers, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		// No leader election, run workers directly.
		startWorkers(ctx)
		logger.Info("shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
