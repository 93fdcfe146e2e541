package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"cleanbot/server/config"
	"cleanbot/server/handlers"
	"cleanbot/server/observability"
	"cleanbot/server/persistence"
	"cleanbot/server/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// openStorage selects the persistence backend from config
func openStorage(cfg config.StorageConfig) (persistence.Storage, error) {
	if cfg.Type == config.StoragePostgres {
		db, err := persistence.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Using PostgreSQL persistence")
		return db, nil
	}

	db, err := persistence.NewJSONStore(cfg.File)
	if err != nil {
		return nil, err
	}
	slog.Info("Using JSON persistence", "file", cfg.File)
	return db, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	db, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	recorder := persistence.NewRecorder(db, cfg.Storage.RecorderBuffer)
	clientManager := handlers.NewClientManager()

	settings := runSettings(cfg.Simulation)
	runService := services.NewRunService(settings, services.MultiSink{clientManager, metrics, recorder})
	mapService := services.NewMapService(db, settings.Parse)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.SetupRoutes(router, handlers.Dependencies{
		Runs:           runService,
		Maps:           mapService,
		Storage:        db,
		Clients:        clientManager,
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "tick_interval", settings.TickInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := runService.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Runs did not stop in time", "error", err)
	}
	recorder.Close()
	return nil
}
